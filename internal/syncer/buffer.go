package syncer

import (
	"context"
	"sort"
	"sync"

	"x-notion-sync/internal/model"
)

// Journal 追加记录单条写入结果。
type Journal interface {
	Record(ctx context.Context, runID string, o model.ItemOutcome) error
}

// RunJournal 额外记录运行的开始与结束（SQLite 实现）。
type RunJournal interface {
	Journal
	BeginRun(ctx context.Context, r *model.Report) error
	FinishRun(ctx context.Context, r *model.Report) error
}

// Buffer 在极简模式下收集写入结果，避免落库。
type Buffer struct {
	mu    sync.Mutex
	items []model.ItemOutcome
}

// NewBuffer 创建空的结果缓冲。
func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Record(_ context.Context, _ string, o model.ItemOutcome) error {
	b.mu.Lock()
	b.items = append(b.items, o)
	b.mu.Unlock()
	return nil
}

// Snapshot 返回副本，按时间先后排序（同一时刻保持写入顺序）。
func (b *Buffer) Snapshot() []model.ItemOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.ItemOutcome, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}
