package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"x-notion-sync/internal/logx"
)

const systemInstruction = `
You summarize short social media posts about software tools for a personal knowledge base.
Reply with ONE plain-text sentence of at most 100 characters, in the same language as the post.
Mention the tool name when there is one. Do not use markdown, quotes or emojis.
`

// Generator 抽象大模型调用，便于测试替换。
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini 通过 Gemini 生成摘要；调用失败或返回为空时回退到截断摘要。
type Gemini struct {
	gen     Generator
	timeout time.Duration
}

// NewGemini 使用给定的生成器创建摘要器，timeout<=0 时默认 20 秒。
func NewGemini(gen Generator, timeout time.Duration) *Gemini {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Gemini{gen: gen, timeout: timeout}
}

func (g *Gemini) Summarize(ctx context.Context, text string, urls []string) string {
	if strings.TrimSpace(text) == "" {
		return Generate(text)
	}
	prompt := text
	if len(urls) > 0 {
		prompt += "\n\nLinks: " + strings.Join(urls, " ")
	}
	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.gen.Generate(cctx, prompt)
	if err != nil {
		logx.Warnf("外部摘要失败，回退到截断摘要：%v", err)
		return Generate(text)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return Generate(text)
	}
	return Generate(out)
}

// GenAIGenerator 基于 google.golang.org/genai 的生成器实现。
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator 创建 Gemini API 客户端。
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("new genai client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if result == nil {
		return "", errors.New("empty generate result")
	}
	return result.Text(), nil
}
