// 包 source 提供点赞推文的来源：
// - x：X API v2（按用户名解析用户 ID，再拉取最近点赞）
// - feed：点赞订阅源（RSS/Atom/JSON Feed，例如 RSSHub 的 likes 路由）
package source

import (
	"context"
	"fmt"

	"x-notion-sync/internal/config"
	"x-notion-sync/internal/fetch"
	"x-notion-sync/internal/model"
)

// Source 为点赞推文来源。
type Source interface {
	Name() string
	// ResolveUser 将用户名解析为来源侧的用户标识。
	ResolveUser(ctx context.Context, username string) (string, error)
	// LikedPosts 按来源返回的顺序获取最多 max 条点赞推文，仅第一页。
	LikedPosts(ctx context.Context, userID string, max int) ([]model.RawPost, error)
}

// NewFromConfig 按 SOURCE.type 构造来源。
func NewFromConfig(cfg *config.Config, cl *fetch.Client) (Source, error) {
	switch cfg.Source.Type {
	case "x", "":
		return NewX(cl, cfg.X.BaseURL, cfg.X.BearerToken), nil
	case "feed":
		return NewFeed(cl, cfg.Source.FeedURL), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Source.Type)
	}
}
