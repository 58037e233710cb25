// 包 record 将点赞推文映射为归一化记录（标题/摘要/分类/链接/时间/作者）。
package record

import (
	"context"
	"strings"

	"x-notion-sync/internal/links"
	"x-notion-sync/internal/model"
	"x-notion-sync/internal/rules"
	"x-notion-sync/internal/summary"
)

const (
	titleMaxRunes = 100
	titleCutRunes = 97
)

// Mapper 持有映射所需的配置；除摘要器外无外部依赖。
type Mapper struct {
	Username      string
	StatusBaseURL string // 例如 https://x.com
	Rules         *rules.Rules
	Summarizer    summary.Summarizer
}

// Map 生成一条记录。使用默认截断摘要器时为纯函数。
func (m *Mapper) Map(ctx context.Context, p model.RawPost) model.Record {
	rl := m.Rules
	if rl == nil {
		rl = rules.Default()
	}
	sum := m.Summarizer
	if sum == nil {
		sum = summary.Truncate{}
	}
	toolURL, _ := links.FirstHTTPLink(p.Text)
	var urls []string
	if toolURL != "" {
		urls = []string{toolURL}
	}
	return model.Record{
		Title:     Title(p.Text),
		Summary:   sum.Summarize(ctx, p.Text, urls),
		Category:  rl.Classify(p.Text),
		SourceURL: SourceURL(m.StatusBaseURL, m.Username, p.ID),
		ToolURL:   toolURL,
		CreatedAt: NormalizeTime(p.CreatedAt),
		Author:    Author(p.AuthorID),
	}
}

// Title 去除首尾空白、换行替换为空格并截取前 100 字；超过 97 字时保留 97 字并追加省略号。
func Title(text string) string {
	t := strings.TrimSpace(text)
	t = strings.ReplaceAll(t, "\r\n", " ")
	t = strings.ReplaceAll(t, "\n", " ")
	r := []rune(t)
	if len(r) > titleMaxRunes {
		r = r[:titleMaxRunes]
	}
	if len(r) > titleCutRunes {
		return string(r[:titleCutRunes]) + summary.Ellipsis
	}
	return string(r)
}

// SourceURL 拼接原文链接：<base>/<username>/status/<id>。
func SourceURL(base, username, id string) string {
	if base == "" {
		base = "https://x.com"
	}
	return strings.TrimSuffix(base, "/") + "/" + username + "/status/" + id
}

// NormalizeTime 将日期与时间之间的 T 替换为空格，末尾的 Z 替换为 +00:00。
func NormalizeTime(s string) string {
	s = strings.Replace(s, "T", " ", 1)
	if strings.HasSuffix(s, "Z") {
		s = strings.TrimSuffix(s, "Z") + "+00:00"
	}
	return s
}

// Author 返回 @ 前缀形式（已有 @ 时不重复添加）。
func Author(id string) string {
	return "@" + strings.TrimPrefix(strings.TrimSpace(id), "@")
}
