// 包 summary 负责生成记录摘要：
// - Generate：截取前 100 字并追加省略号（默认实现）
// - Gemini：调用外部大模型生成摘要，失败时回退到 Generate
// 任一实现的输出长度都不超过 MaxRunes+len(Ellipsis)。
package summary

import (
	"context"
	"unicode/utf8"
)

const (
	MaxRunes = 100
	Ellipsis = "..."
)

// Summarizer 为摘要生成的扩展点。urls 为推文中的链接，可作为额外上下文。
type Summarizer interface {
	Summarize(ctx context.Context, text string, urls []string) string
}

// Generate 在文本不超过 100 字时原样返回，否则截断并追加省略号。
func Generate(text string) string {
	if utf8.RuneCountInString(text) <= MaxRunes {
		return text
	}
	return string([]rune(text)[:MaxRunes]) + Ellipsis
}

// Truncate 为默认的截断摘要器。
type Truncate struct{}

func (Truncate) Summarize(_ context.Context, text string, _ []string) string {
	return Generate(text)
}
