// 包 rules 负责关键词规则（rules.yaml）：
// - relevance：判断推文是否与工具/效率相关的关键词集合
// - categories：按顺序排列的 {label, keywords}，先命中者为准
// 未提供文件时使用内置规则，两者都是纯子串匹配（不分词）。
package rules

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"x-notion-sync/internal/model"
)

// Rules 为相关性过滤与分类所需的关键词表。
type Rules struct {
	Relevance  []string       `yaml:"relevance"`
	Categories []CategoryRule `yaml:"categories"`
}

// CategoryRule 为单个分类的关键词组。
type CategoryRule struct {
	Label    model.Category `yaml:"label"`
	Keywords []string       `yaml:"keywords"`
}

// Default 返回内置规则（中英双语）。
func Default() *Rules {
	return &Rules{
		Relevance: []string{
			"ai", "人工智能", "大模型", "llm", "chatgpt", "工具", "效率", "productivity",
			"notion", "obsidian", "figma", "设计", "学习", "教程", "workflow", "automation",
			"app", "软件", "平台", "发布", "更新", "新功能",
		},
		Categories: []CategoryRule{
			{Label: model.CategoryAI, Keywords: []string{"ai", "人工智能", "大模型", "llm", "chatgpt"}},
			{Label: model.CategoryProductivity, Keywords: []string{"notion", "obsidian", "效率", "productivity", "workflow"}},
			{Label: model.CategoryDesign, Keywords: []string{"figma", "设计", "ui", "ux"}},
			{Label: model.CategoryLearning, Keywords: []string{"学习", "笔记", "知识管理", "readwise"}},
		},
	}
}

// Load 从文件加载 YAML 规则；缺省的段落沿用内置规则。
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	def := Default()
	if len(r.Relevance) == 0 {
		r.Relevance = def.Relevance
	}
	if len(r.Categories) == 0 {
		r.Categories = def.Categories
	}
	if err := r.normalize(); err != nil {
		return nil, fmt.Errorf("validate rules %s: %w", path, err)
	}
	return &r, nil
}

// normalize 统一转小写并去除空关键词，同时校验分类标签。
func (r *Rules) normalize() error {
	r.Relevance = lowerAll(r.Relevance)
	for i, c := range r.Categories {
		if !c.Label.Valid() || c.Label == model.CategoryOther {
			return fmt.Errorf("unsupported category label: %q", c.Label)
		}
		r.Categories[i].Keywords = lowerAll(c.Keywords)
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// IsToolRelated 任一关键词作为子串出现即视为相关（不区分大小写）。
func (r *Rules) IsToolRelated(text string) bool {
	return containsAny(strings.ToLower(text), r.Relevance)
}

// Classify 按顺序检查分类关键词组，返回第一个命中的分类，均未命中返回 Other。
func (r *Rules) Classify(text string) model.Category {
	lower := strings.ToLower(text)
	for _, c := range r.Categories {
		if containsAny(lower, c.Keywords) {
			return c.Label
		}
	}
	return model.CategoryOther
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
