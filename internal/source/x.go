package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	twitter "github.com/g8rswimmer/go-twitter/v2"

	"x-notion-sync/internal/fetch"
	"x-notion-sync/internal/model"
)

// 点赞推文请求的字段
var likedTweetFields = []twitter.TweetField{
	twitter.TweetFieldCreatedAt,
	twitter.TweetFieldAuthorID,
	twitter.TweetFieldEntities,
	twitter.TweetFieldContextAnnotations,
}

// APIError 为 X API 返回的错误（非 2xx 或仅含 errors 的响应）。
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Title + ": " + e.Detail)
	msg = strings.Trim(msg, ": ")
	if e.Status > 0 {
		return fmt.Sprintf("x api status %d: %s", e.Status, msg)
	}
	return "x api: " + msg
}

type bearer string

func (b bearer) Add(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+string(b))
}

// X 为 X API v2 客户端（Bearer Token 认证）。
type X struct {
	client *twitter.Client
}

// NewX 创建 X 来源，复用 fetch.Client 的代理与超时设置。
func NewX(cl *fetch.Client, baseURL, token string) *X {
	return &X{client: &twitter.Client{
		Authorizer: bearer(token),
		Client:     cl.HTTPClient(),
		Host:       strings.TrimSuffix(baseURL, "/"),
	}}
}

func (x *X) Name() string { return "x" }

// ResolveUser 调用 GET /2/users/by/username/:username。
func (x *X) ResolveUser(ctx context.Context, username string) (string, error) {
	resp, err := x.client.UserNameLookup(ctx, []string{username}, twitter.UserLookupOpts{})
	if err != nil {
		return "", fmt.Errorf("lookup user %s: %w", username, apiError(err))
	}
	if resp != nil && resp.Raw != nil {
		for _, u := range resp.Raw.Users {
			if u != nil && u.ID != "" {
				return u.ID, nil
			}
		}
		return "", fmt.Errorf("lookup user %s: %w", username, problemError(resp.Raw.Errors, "user not found"))
	}
	return "", fmt.Errorf("lookup user %s: user not found", username)
}

// LikedPosts 调用 GET /2/users/:id/liked_tweets，max 会被限制在 API 允许的 [10,100] 内。
func (x *X) LikedPosts(ctx context.Context, userID string, max int) ([]model.RawPost, error) {
	if max < 10 {
		max = 10
	}
	if max > 100 {
		max = 100
	}
	resp, err := x.client.UserLikesLookup(ctx, userID, twitter.UserLikesLookupOpts{
		MaxResults:  max,
		TweetFields: likedTweetFields,
	})
	if err != nil {
		return nil, fmt.Errorf("liked tweets of %s: %w", userID, apiError(err))
	}
	if resp == nil || resp.Raw == nil {
		return []model.RawPost{}, nil
	}
	raw := resp.Raw
	if len(raw.Tweets) == 0 && len(raw.Errors) > 0 {
		return nil, fmt.Errorf("liked tweets of %s: %w", userID, problemError(raw.Errors, "no data"))
	}
	posts := make([]model.RawPost, 0, len(raw.Tweets))
	for _, t := range raw.Tweets {
		if t == nil {
			continue
		}
		posts = append(posts, toRawPost(t))
	}
	return posts, nil
}

func toRawPost(t *twitter.TweetObj) model.RawPost {
	p := model.RawPost{ID: t.ID, AuthorID: t.AuthorID, Text: t.Text, CreatedAt: t.CreatedAt}
	if t.Entities != nil {
		for _, u := range t.Entities.URLs {
			if u.ExpandedURL != "" {
				p.Entities = append(p.Entities, u.ExpandedURL)
			}
		}
	}
	for _, a := range t.ContextAnnotations {
		if a != nil && a.Entity.Name != "" {
			p.Annotations = append(p.Annotations, a.Entity.Name)
		}
	}
	return p
}

// apiError 将 SDK 的错误类型映射为 *APIError，其他错误原样返回。
func apiError(err error) error {
	var er *twitter.ErrorResponse
	if errors.As(err, &er) {
		e := &APIError{Status: er.StatusCode, Title: er.Title, Detail: er.Detail}
		if e.Title == "" && e.Detail == "" && len(er.Errors) > 0 {
			e.Title, e.Detail = er.Errors[0].Title, er.Errors[0].Detail
		}
		if e.Title == "" && e.Detail == "" {
			e.Detail = http.StatusText(er.StatusCode)
		}
		return e
	}
	var he *twitter.HTTPError
	if errors.As(err, &he) {
		return &APIError{Status: he.StatusCode, Detail: http.StatusText(he.StatusCode)}
	}
	return err
}

func problemError(problems []*twitter.ErrorObj, fallback string) error {
	for _, p := range problems {
		if p == nil {
			continue
		}
		return &APIError{Title: p.Title, Detail: p.Detail}
	}
	return errors.New(fallback)
}
