package source

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"x-notion-sync/internal/fetch"
	"x-notion-sync/internal/model"
)

// Feed 从点赞订阅源读取推文。feedURL 中的 {username} 会被替换为用户名。
type Feed struct {
	cl      *fetch.Client
	feedURL string
}

// NewFeed 创建订阅源来源，复用 fetch.Client 的重试与代理设置。
func NewFeed(cl *fetch.Client, feedURL string) *Feed {
	return &Feed{cl: cl, feedURL: feedURL}
}

func (f *Feed) Name() string { return "feed" }

// ResolveUser 订阅源以用户名寻址，无需额外查询。
func (f *Feed) ResolveUser(_ context.Context, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("empty username")
	}
	return username, nil
}

// LikedPosts 抓取并解析订阅源，按条目顺序返回最多 max 条。
func (f *Feed) LikedPosts(ctx context.Context, userID string, max int) ([]model.RawPost, error) {
	feedURL := strings.ReplaceAll(f.feedURL, "{username}", userID)
	resp, err := f.cl.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("GET feed %s: %w", feedURL, err)
	}
	defer resp.Body.Close()
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	posts := make([]model.RawPost, 0, len(feed.Items))
	for _, it := range feed.Items {
		p := model.RawPost{
			ID:        postID(it),
			AuthorID:  authorName(it),
			Text:      itemText(it),
			CreatedAt: createdAt(it),
		}
		if p.ID == "" {
			continue
		}
		posts = append(posts, p)
		if max > 0 && len(posts) >= max {
			break
		}
	}
	return posts, nil
}

// postID 取链接中 /status/ 之后的片段，缺失时回退到 GUID。
func postID(it *gofeed.Item) string {
	for _, s := range []string{it.Link, it.GUID} {
		if i := strings.Index(s, "/status/"); i >= 0 {
			id := s[i+len("/status/"):]
			if j := strings.IndexAny(id, "/?#"); j >= 0 {
				id = id[:j]
			}
			if id != "" {
				return id
			}
		}
	}
	if it.GUID != "" {
		return path.Base(strings.TrimSuffix(it.GUID, "/"))
	}
	return ""
}

func authorName(it *gofeed.Item) string {
	if it.Author != nil && it.Author.Name != "" {
		return strings.TrimSpace(it.Author.Name)
	}
	for _, a := range it.Authors {
		if a != nil && a.Name != "" {
			return strings.TrimSpace(a.Name)
		}
	}
	return ""
}

func createdAt(it *gofeed.Item) string {
	t := it.PublishedParsed
	if t == nil {
		t = it.UpdatedParsed
	}
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// itemText 优先使用 description，其次 content，最后 title。
func itemText(it *gofeed.Item) string {
	for _, s := range []string{it.Description, it.Content, it.Title} {
		if txt := htmlToText(s); txt != "" {
			return txt
		}
	}
	return ""
}

// htmlToText 将订阅条目的 HTML 转为纯文本：
// - <br> 与块级元素换行
// - 显示为网址的 <a> 文本替换为其 http(s) href（订阅源常将链接文本截断显示），
//   话题/提及等普通文本链接保持原样
func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script,style,img,video").Remove()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return
		}
		if looksLikeURL(strings.TrimSpace(a.Text())) {
			a.SetText(" " + href + " ")
		}
	})
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,li,blockquote").Each(func(_ int, b *goquery.Selection) {
		b.AppendHtml("\n")
	})
	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func looksLikeURL(s string) bool {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return true
	}
	return strings.Contains(s, ".") && !strings.ContainsAny(s, " #@")
}
