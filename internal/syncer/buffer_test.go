package syncer

import (
	"context"
	"testing"
	"time"

	"x-notion-sync/internal/model"
)

func TestBuffer_SnapshotOrderAndCopy(t *testing.T) {
	b := NewBuffer()
	now := time.Now()
	_ = b.Record(context.Background(), "r", model.ItemOutcome{PostID: "late", At: now.Add(time.Second)})
	_ = b.Record(context.Background(), "r", model.ItemOutcome{PostID: "a", At: now})
	_ = b.Record(context.Background(), "r", model.ItemOutcome{PostID: "b", At: now})

	got := b.Snapshot()
	if len(got) != 3 || got[0].PostID != "a" || got[1].PostID != "b" || got[2].PostID != "late" {
		t.Fatalf("unexpected order: %+v", got)
	}
	got[0].PostID = "changed"
	if b.Snapshot()[0].PostID != "a" {
		t.Fatalf("snapshot must be a copy")
	}
}

func TestFatalError_Message(t *testing.T) {
	err := &FatalError{Kind: KindConfig, Err: context.Canceled}
	if err.Error() != "config: context canceled" {
		t.Fatalf("got %q", err.Error())
	}
}
