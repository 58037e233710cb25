// 包 export 负责导出运行报告：将本次同步结果写为带缩进的 JSON 文件。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"x-notion-sync/internal/model"
	"x-notion-sync/internal/store"
)

// ToJSON 将报告写入 path（覆盖已有文件）。Items 为空时写出空数组。
func ToJSON(rep *model.Report, path string) error {
	if rep == nil {
		return fmt.Errorf("export %s: nil report", path)
	}
	out := *rep
	if out.Items == nil {
		out.Items = []model.ItemOutcome{}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}

// FromStore 从运行日志读取本次运行的全部结果后导出。
func FromStore(ctx context.Context, s *store.SQLite, rep *model.Report, path string) error {
	items, err := s.ListItems(ctx, rep.RunID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	out := *rep
	out.Items = items
	return ToJSON(&out, path)
}
