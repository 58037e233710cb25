package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x-notion-sync/internal/logx"
	"x-notion-sync/internal/model"
	"x-notion-sync/internal/rules"
	"x-notion-sync/internal/store"
	"x-notion-sync/internal/syncer"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logx.Init(logx.Options{Level: "debug", Color: "never", Writer: &buf})
	t.Cleanup(func() { logx.Init(logx.Options{Level: "off"}) })
	return &buf
}

func TestExitCode(t *testing.T) {
	fatal := &syncer.FatalError{Kind: syncer.KindFetch, Err: errors.New("boom")}
	cases := []struct {
		name   string
		rep    *model.Report
		err    error
		strict bool
		want   int
	}{
		{"fatal", &model.Report{}, fatal, false, exitFatal},
		{"fatal strict", &model.Report{Failed: 3}, fatal, true, exitFatal},
		{"canceled", &model.Report{Written: 1}, context.Canceled, false, exitFatal},
		{"empty likes", &model.Report{Empty: true}, nil, false, exitOK},
		{"empty likes strict", &model.Report{Empty: true}, nil, true, exitOK},
		{"item failure", &model.Report{Written: 2, Failed: 1}, nil, false, exitOK},
		{"item failure strict", &model.Report{Written: 2, Failed: 1}, nil, true, exitItemFailure},
		{"all written strict", &model.Report{Written: 2}, nil, true, exitOK},
		{"nil report", nil, nil, true, exitOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, exitCode(c.rep, c.err, c.strict))
		})
	}
}

func TestShouldPushMetrics(t *testing.T) {
	assert.True(t, shouldPushMetrics(nil))
	assert.True(t, shouldPushMetrics(&syncer.FatalError{Kind: syncer.KindResolve, Err: errors.New("404")}))
	assert.True(t, shouldPushMetrics(context.Canceled))
	assert.False(t, shouldPushMetrics(&syncer.FatalError{Kind: syncer.KindConfig, Err: errors.New("username is empty")}))
	wrapped := fmt.Errorf("run: %w", &syncer.FatalError{Kind: syncer.KindConfig, Err: errors.New("username is empty")})
	assert.False(t, shouldPushMetrics(wrapped))
}

func TestChooseExport(t *testing.T) {
	cases := []struct {
		name                        string
		path                        string
		simple, journaled, explicit bool
		want                        exportSource
	}{
		{"simple default path", "report.json", true, false, false, exportBuffer},
		{"simple explicit", "out.json", true, false, true, exportBuffer},
		{"simple empty path", "", true, false, true, exportNone},
		{"store not explicit", "report.json", false, true, false, exportNone},
		{"store explicit", "out.json", false, true, true, exportStore},
		{"no journal explicit", "out.json", false, false, true, exportReport},
		{"no journal default", "report.json", false, false, false, exportNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, chooseExport(c.path, c.simple, c.journaled, c.explicit))
		})
	}
}

func readReport(t *testing.T, path string) model.Report {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var rep model.Report
	require.NoError(t, json.Unmarshal(b, &rep))
	return rep
}

func TestFinishExport_BufferSnapshot(t *testing.T) {
	captureLogs(t)
	ctx := context.Background()
	buf := syncer.NewBuffer()
	require.NoError(t, buf.Record(ctx, "r1", model.ItemOutcome{PostID: "1", Status: model.StatusWritten, At: time.Now()}))
	path := filepath.Join(t.TempDir(), "report.json")

	finishExport(ctx, &model.Report{RunID: "r1", Written: 1}, buf, nil, path, false)

	rep := readReport(t, path)
	assert.Equal(t, "r1", rep.RunID)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, "1", rep.Items[0].PostID)
}

func TestFinishExport_StoreOnlyWhenExplicit(t *testing.T) {
	captureLogs(t)
	ctx := context.Background()
	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer st.Close()
	rep := &model.Report{RunID: "r1", StartedAt: time.Now()}
	require.NoError(t, st.BeginRun(ctx, rep))
	require.NoError(t, st.Record(ctx, "r1", model.ItemOutcome{PostID: "9", Status: model.StatusFailed, HTTPStatus: 400, At: time.Now()}))

	dir := t.TempDir()
	implicit := filepath.Join(dir, "report.json")
	finishExport(ctx, rep, nil, st, implicit, false)
	_, err = os.Stat(implicit)
	assert.True(t, os.IsNotExist(err))

	explicit := filepath.Join(dir, "out.json")
	finishExport(ctx, rep, nil, st, explicit, true)
	got := readReport(t, explicit)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 400, got.Items[0].HTTPStatus)
}

func TestFinishExport_NilReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	finishExport(context.Background(), nil, syncer.NewBuffer(), nil, path, true)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestLoadRules_MissingFileWarns(t *testing.T) {
	logs := captureLogs(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	r := loadRules(path)
	assert.Equal(t, rules.Default(), r)
	assert.Contains(t, logs.String(), "未找到规则文件")
	assert.Contains(t, logs.String(), path)
}

func TestLoadRules_InvalidFileWarns(t *testing.T) {
	logs := captureLogs(t)
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  - label: Misc\n    keywords: [x]\n"), 0644))
	r := loadRules(path)
	assert.Equal(t, rules.Default(), r)
	assert.Contains(t, logs.String(), "加载规则失败")
}

func TestLoadRules_EmptyPathSilent(t *testing.T) {
	logs := captureLogs(t)
	assert.Equal(t, rules.Default(), loadRules(""))
	assert.Empty(t, logs.String())
}
