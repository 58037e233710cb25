// 包 store 提供运行日志存储（SQLite）：记录每次同步运行与每条写入结果。
// 只追加写入，不做按推文 ID 的去重。
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"x-notion-sync/internal/model"
)

// SQLite 封装 *sql.DB，基于 modernc.org/sqlite（纯 Go 实现）。
type SQLite struct {
	db *sql.DB
}

// Stats 为运行日志汇总。
type Stats struct {
	Runs      int       `json:"runs"`
	Items     int       `json:"items"`
	Written   int       `json:"written"`
	Failed    int       `json:"failed"`
	LastRunAt time.Time `json:"last_run_at"`
}

// OpenSQLite 打开 SQLite 数据库并执行自动迁移。
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close 关闭数据库连接。
func (s *SQLite) Close() error { return s.db.Close() }

// 时间统一存为 Unix 秒，便于按阈值清理。
func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
            run_id TEXT PRIMARY KEY,
            username TEXT,
            source TEXT,
            started_at INTEGER,
            finished_at INTEGER,
            fetched INTEGER DEFAULT 0,
            relevant INTEGER DEFAULT 0,
            skipped INTEGER DEFAULT 0,
            written INTEGER DEFAULT 0,
            failed INTEGER DEFAULT 0,
            empty INTEGER DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS items (
            run_id TEXT,
            post_id TEXT,
            title TEXT,
            category TEXT,
            status TEXT,
            http_status INTEGER,
            page_id TEXT,
            error TEXT,
            at INTEGER
        );`,
		`CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// BeginRun 插入运行记录（仅标识与开始时间）。
func (s *SQLite) BeginRun(ctx context.Context, r *model.Report) error {
	if r == nil || r.RunID == "" {
		return errors.New("run id required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs(run_id, username, source, started_at) VALUES(?,?,?,?)`,
		r.RunID, r.Username, r.Source, unixOr(r.StartedAt))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	return nil
}

// FinishRun 写回运行结束时的计数。
func (s *SQLite) FinishRun(ctx context.Context, r *model.Report) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET finished_at=?, fetched=?, relevant=?, skipped=?, written=?, failed=?, empty=?
        WHERE run_id=?`,
		unixOr(r.FinishedAt), r.Fetched, r.Relevant, r.Skipped, r.Written, r.Failed, boolInt(r.Empty), r.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.RunID, err)
	}
	return nil
}

// Record 追加一条写入结果。
func (s *SQLite) Record(ctx context.Context, runID string, o model.ItemOutcome) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO items(run_id, post_id, title, category, status, http_status, page_id, error, at)
        VALUES(?,?,?,?,?,?,?,?,?)`,
		runID, o.PostID, o.Title, string(o.Category), o.Status, o.HTTPStatus, o.PageID, o.Error, unixOr(o.At))
	if err != nil {
		return fmt.Errorf("insert item %s: %w", o.PostID, err)
	}
	return nil
}

// GetRun 读取一次运行的汇总（不含 Items）；不存在时返回 sql.ErrNoRows。
func (s *SQLite) GetRun(ctx context.Context, runID string) (*model.Report, error) {
	var r model.Report
	var started int64
	var finished sql.NullInt64
	var empty int
	err := s.db.QueryRowContext(ctx, `SELECT run_id, COALESCE(username,''), COALESCE(source,''), started_at, finished_at,
            fetched, relevant, skipped, written, failed, empty FROM runs WHERE run_id=?`, runID).
		Scan(&r.RunID, &r.Username, &r.Source, &started, &finished,
			&r.Fetched, &r.Relevant, &r.Skipped, &r.Written, &r.Failed, &empty)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	r.StartedAt = time.Unix(started, 0).UTC()
	if finished.Valid {
		r.FinishedAt = time.Unix(finished.Int64, 0).UTC()
	}
	r.Empty = empty != 0
	return &r, nil
}

// ListItems 按写入顺序返回某次运行的全部结果。
func (s *SQLite) ListItems(ctx context.Context, runID string) ([]model.ItemOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT post_id, title, category, status, COALESCE(http_status,0), COALESCE(page_id,''), COALESCE(error,''), at
        FROM items WHERE run_id=? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()
	var out []model.ItemOutcome
	for rows.Next() {
		var o model.ItemOutcome
		var cat string
		var at int64
		if err := rows.Scan(&o.PostID, &o.Title, &cat, &o.Status, &o.HTTPStatus, &o.PageID, &o.Error, &at); err != nil {
			return nil, fmt.Errorf("scan items: %w", err)
		}
		o.Category = model.Category(cat)
		o.At = time.Unix(at, 0).UTC()
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

// Stats 统计运行次数、写入成功/失败条数与最近一次运行时间。
func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var last sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1), MAX(started_at) FROM runs`).Scan(&st.Runs, &last); err != nil {
		return st, fmt.Errorf("count runs: %w", err)
	}
	if last.Valid {
		st.LastRunAt = time.Unix(last.Int64, 0).UTC()
	}
	q := `SELECT COUNT(1),
            COALESCE(SUM(CASE WHEN status=? THEN 1 ELSE 0 END),0),
            COALESCE(SUM(CASE WHEN status=? THEN 1 ELSE 0 END),0)
        FROM items`
	if err := s.db.QueryRowContext(ctx, q, model.StatusWritten, model.StatusFailed).Scan(&st.Items, &st.Written, &st.Failed); err != nil {
		return st, fmt.Errorf("count items: %w", err)
	}
	return st, nil
}

// CleanOld 按天数阈值清理过期的运行与结果，days<=0 时不清理。
func (s *SQLite) CleanOld(ctx context.Context, days int) error {
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -days).Unix()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE at < ?`, cutoff); err != nil {
		return fmt.Errorf("clean old items: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff); err != nil {
		return fmt.Errorf("clean old runs: %w", err)
	}
	return nil
}

// Reset 清空全部运行日志（不删除数据库文件）。
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items`); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	return nil
}

func unixOr(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().Unix()
	}
	return t.Unix()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
