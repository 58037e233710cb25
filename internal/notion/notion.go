// 包 notion 负责将归一化记录写入 Notion 数据库（Page.Create）。
// 每条记录只尝试一次，失败以 *WriteError 返回（含状态码与错误内容）。
package notion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jomei/notionapi"

	"x-notion-sync/internal/config"
	"x-notion-sync/internal/fetch"
	"x-notion-sync/internal/logx"
	"x-notion-sync/internal/model"
)

// 数据库字段长度上限
const (
	TitleLimit   = 100
	SummaryLimit = 200
)

const defaultBaseURL = "https://api.notion.com"

// Writer 为记录写入端。
type Writer interface {
	Write(ctx context.Context, rec model.Record) (WriteResult, error)
}

// WriteResult 为写入结果。
type WriteResult struct {
	Status int
	PageID string
}

// WriteError 表示目标端返回了非成功状态。
type WriteError struct {
	Status int
	Body   string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("notion create page failed: status=%d body=%s", e.Status, e.Body)
}

// Client 为 Notion 页面创建客户端。
type Client struct {
	api        *notionapi.Client
	databaseID string
	props      config.Properties
}

// New 根据 NOTION 配置创建客户端；BASE_URL 非官方地址时改写请求主机（用于代理或测试）。
func New(cl *fetch.Client, cfg config.Notion) *Client {
	hc := cl.HTTPClient()
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base != "" && base != defaultBaseURL {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			hc = &http.Client{Transport: hostRewrite{target: u, next: hc.Transport}, Timeout: hc.Timeout}
		}
	}
	opts := []notionapi.ClientOption{
		notionapi.WithHTTPClient(hc),
		notionapi.WithRetry(1),
	}
	if cfg.Version != "" {
		opts = append(opts, notionapi.WithVersion(cfg.Version))
	}
	return &Client{
		api:        notionapi.NewClient(notionapi.Token(cfg.Token), opts...),
		databaseID: cfg.DatabaseID,
		props:      cfg.Properties,
	}
}

// Write 创建一个页面。
func (c *Client) Write(ctx context.Context, rec model.Record) (WriteResult, error) {
	page, err := c.api.Page.Create(ctx, c.Request(rec))
	if err != nil {
		return writeFailure(err)
	}
	res := WriteResult{Status: http.StatusOK}
	if page != nil {
		res.PageID = page.ID.String()
	}
	if res.PageID == "" {
		logx.Warnf("Notion 返回成功但没有页面 ID：%s", rec.Title)
	}
	return res, nil
}

// writeFailure 将 SDK 错误映射为 *WriteError；无法识别的错误（网络/解码）原样返回。
func writeFailure(err error) (WriteResult, error) {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		we := &WriteError{Status: apiErr.Status, Body: fmt.Sprintf("%s: %s", apiErr.Code, apiErr.Message)}
		return WriteResult{Status: apiErr.Status}, we
	}
	var rl *notionapi.RateLimitedError
	if errors.As(err, &rl) {
		return WriteResult{Status: http.StatusTooManyRequests}, &WriteError{Status: http.StatusTooManyRequests, Body: rl.Message}
	}
	return WriteResult{}, fmt.Errorf("request failed: %w", err)
}

// Request 构造页面创建请求。tool_url 缺失时不写该属性（保持为空）。
func (c *Client) Request(rec model.Record) *notionapi.PageCreateRequest {
	p := c.props
	props := notionapi.Properties{
		p.Title: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(truncate(rec.Title, TitleLimit)),
		},
		p.Category: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(rec.Category)},
		},
		p.Summary: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(truncate(rec.Summary, SummaryLimit)),
		},
		p.SourceURL: notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  rec.SourceURL,
		},
		p.Author: notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(rec.Author),
		},
		p.Read: notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: false,
		},
	}
	if rec.ToolURL != "" {
		props[p.ToolURL] = notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: rec.ToolURL}
	}
	if t, ok := parseCreatedAt(rec.CreatedAt); ok {
		start := notionapi.Date(t)
		props[p.Date] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &start},
		}
	} else if rec.CreatedAt != "" {
		logx.Warnf("无法解析发布时间，跳过时间属性：%s", rec.CreatedAt)
	}
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(c.databaseID),
		},
		Properties: props,
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

// 归一化后的时间形如 2024-05-01 10:00:00.000+00:00
var createdAtLayouts = []string{
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	time.RFC3339Nano,
	"2006-01-02",
}

func parseCreatedAt(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// hostRewrite 将发往官方 API 的请求改写到配置的 BASE_URL。
type hostRewrite struct {
	target *url.URL
	next   http.RoundTripper
}

func (h hostRewrite) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Scheme = h.target.Scheme
	r.URL.Host = h.target.Host
	r.Host = h.target.Host
	if p := strings.TrimSuffix(h.target.Path, "/"); p != "" {
		r.URL.Path = p + r.URL.Path
	}
	next := h.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}

// DryRun 只打印将要写入的内容，不发起请求。
type DryRun struct {
	Client *Client
}

func (d DryRun) Write(_ context.Context, rec model.Record) (WriteResult, error) {
	if d.Client != nil {
		if b, err := json.Marshal(d.Client.Request(rec)); err == nil {
			logx.Debugf("dry-run 请求体：%s", b)
		}
	}
	logx.Infof("[dry-run] 分类=%s 标题=%s 工具链接=%s", rec.Category, rec.Title, rec.ToolURL)
	return WriteResult{}, nil
}
