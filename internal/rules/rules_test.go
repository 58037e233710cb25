package rules_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"x-notion-sync/internal/model"
	"x-notion-sync/internal/rules"
)

func TestIsToolRelated(t *testing.T) {
	r := rules.Default()
	cases := []struct {
		text string
		want bool
	}{
		{"刚发现一个新的 AI 工具 https://example.com/tool 太好用了", true},
		{"今天天气不错", false},
		{"Try NOTION for notes", true},
		{"新功能上线", true},
		// 子串碰撞属于预期行为
		{"I was so happy", true},
		{"", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.IsToolRelated(c.text), "text=%q", c.text)
	}
}

func TestIsToolRelated_CaseInsensitiveAndMonotonic(t *testing.T) {
	r := rules.Default()
	base := "今天天气不错"
	require.False(t, r.IsToolRelated(base))
	for _, k := range r.Relevance {
		assert.True(t, r.IsToolRelated(base+" "+strings.ToUpper(k)), "keyword %q", k)
		assert.True(t, r.IsToolRelated(k+base), "keyword %q", k)
	}
}

func TestClassify(t *testing.T) {
	r := rules.Default()
	cases := []struct {
		text string
		want model.Category
	}{
		{"刚发现一个新的 AI 工具 https://example.com/tool 太好用了", model.CategoryAI},
		{"My Obsidian workflow", model.CategoryProductivity},
		{"Figma plugin release", model.CategoryDesign},
		{"读书笔记分享", model.CategoryLearning},
		{"今天天气不错", model.CategoryOther},
		// AI 与设计同时命中时取 AI
		{"figma 新出的 ChatGPT 插件", model.CategoryAI},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.Classify(c.text), "text=%q", c.text)
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	r := rules.Default()
	inputs := []string{"", "x", "UI kit", "学习方法", "LLM", "🙂🙂🙂", strings.Repeat("abc ", 100)}
	for _, in := range inputs {
		got := r.Classify(in)
		assert.True(t, got.Valid(), "input %q got %q", in, got)
		assert.Equal(t, got, r.Classify(in))
	}
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(f, []byte("categories:\n  - label: Design-Tool\n    keywords: [\" Sketch \"]\n"), 0644))

	r, err := rules.Load(f)
	require.NoError(t, err)
	assert.Equal(t, rules.Default().Relevance, r.Relevance)
	require.Len(t, r.Categories, 1)
	assert.Equal(t, []string{"sketch"}, r.Categories[0].Keywords)
	assert.Equal(t, model.CategoryDesign, r.Classify("New SKETCH release"))
	assert.Equal(t, model.CategoryOther, r.Classify("ChatGPT"))
}

func TestLoad_RejectsUnknownLabel(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(f, []byte("categories:\n  - label: Misc\n    keywords: [x]\n"), 0644))
	_, err := rules.Load(f)
	assert.Error(t, err)

	_, err = rules.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
