// 包 model 定义同步流程中的数据模型（点赞推文/归一化记录/运行报告）。
package model

import "time"

// Category 为记录分类，仅允许以下五个取值。
type Category string

const (
	CategoryAI           Category = "AI-Tool"
	CategoryProductivity Category = "Productivity-Tool"
	CategoryDesign       Category = "Design-Tool"
	CategoryLearning     Category = "Learning-Method"
	CategoryOther        Category = "Other"
)

// Categories 按分类优先级列出全部取值（Other 兜底在最后）。
var Categories = []Category{CategoryAI, CategoryProductivity, CategoryDesign, CategoryLearning, CategoryOther}

// Valid 判断是否为合法分类。
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// RawPost 为来源平台返回的点赞推文，只读。
type RawPost struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"` // ISO-8601
	// 以下元数据仅用于日志，核心逻辑只读取 Text
	Entities    []string `json:"entities,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
}

// Record 为写入笔记数据库的归一化记录，创建后不再修改。
type Record struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Category  Category `json:"category"`
	SourceURL string   `json:"source_url"`
	ToolURL   string   `json:"tool_url,omitempty"` // 为空表示未找到链接
	CreatedAt string   `json:"created_at"`
	Author    string   `json:"author"`
}

// 单条记录的处理结果
const (
	StatusWritten = "written"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
)

// ItemOutcome 记录一次写入尝试的结果。
type ItemOutcome struct {
	PostID     string    `json:"post_id"`
	Title      string    `json:"title"`
	Category   Category  `json:"category"`
	Status     string    `json:"status"`
	HTTPStatus int       `json:"http_status,omitempty"`
	PageID     string    `json:"page_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Report 为一次同步运行的汇总。
type Report struct {
	RunID      string        `json:"run_id"`
	Username   string        `json:"username"`
	Source     string        `json:"source"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Fetched    int           `json:"fetched"`
	Relevant   int           `json:"relevant"`
	Skipped    int           `json:"skipped"`
	Written    int           `json:"written"`
	Failed     int           `json:"failed"`
	Empty      bool          `json:"empty"`
	Items      []ItemOutcome `json:"items"`
}
