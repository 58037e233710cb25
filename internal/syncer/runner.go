// 包 syncer 负责主流程编排：
// - 解析用户名并拉取点赞推文
// - 相关性过滤、映射为记录并逐条写入笔记数据库
// - 记录运行日志与指标
// 单条写入失败只记录不中断；用户名缺失、解析或拉取失败为致命错误。
package syncer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"x-notion-sync/internal/logx"
	"x-notion-sync/internal/metrics"
	"x-notion-sync/internal/model"
	"x-notion-sync/internal/notion"
	"x-notion-sync/internal/record"
	"x-notion-sync/internal/rules"
	"x-notion-sync/internal/source"
	"x-notion-sync/internal/summary"
)

// Options 为 Runner 的全部依赖，Journal/Metrics/Summarizer 可为空。
type Options struct {
	Username      string
	MaxResults    int
	StatusBaseURL string
	DryRun        bool

	Source     source.Source
	Writer     notion.Writer
	Rules      *rules.Rules
	Summarizer summary.Summarizer
	Journal    Journal
	Metrics    *metrics.Recorder
}

// Runner 同步执行器。
type Runner struct {
	opts   Options
	rules  *rules.Rules
	mapper *record.Mapper
}

// New 创建 Runner。
func New(opts Options) *Runner {
	rl := opts.Rules
	if rl == nil {
		rl = rules.Default()
	}
	username := strings.TrimPrefix(strings.TrimSpace(opts.Username), "@")
	opts.Username = username
	return &Runner{
		opts:  opts,
		rules: rl,
		mapper: &record.Mapper{
			Username:      username,
			StatusBaseURL: opts.StatusBaseURL,
			Rules:         rl,
			Summarizer:    opts.Summarizer,
		},
	}
}

// Run 执行一轮同步：解析用户→拉取点赞→过滤/映射/写入。
// 返回的报告在致命错误时同样非空，包含已完成的计数。
func (r *Runner) Run(ctx context.Context) (*model.Report, error) {
	start := time.Now()
	rep := &model.Report{
		RunID:     uuid.NewString(),
		Username:  r.opts.Username,
		StartedAt: start,
	}
	if r.opts.Source != nil {
		rep.Source = r.opts.Source.Name()
	}
	if r.opts.Username == "" {
		return rep, &FatalError{Kind: KindConfig, Err: errors.New("username is empty")}
	}

	rj, _ := r.opts.Journal.(RunJournal)
	if rj != nil {
		if err := rj.BeginRun(ctx, rep); err != nil {
			logx.Warnf("写入运行日志失败：%v", err)
			rj = nil
		}
	}
	var fatal error
	defer func() {
		rep.FinishedAt = time.Now()
		if rj != nil {
			if err := rj.FinishRun(journalContext(ctx), rep); err != nil {
				logx.Warnf("更新运行日志失败：%v", err)
			}
		}
		r.opts.Metrics.RunFinished(rep.FinishedAt.Sub(start), fatal == nil)
	}()

	userID, err := r.opts.Source.ResolveUser(ctx, r.opts.Username)
	if err != nil {
		fatal = &FatalError{Kind: KindResolve, Err: err}
		return rep, fatal
	}
	logx.Debugf("用户 @%s 的 ID=%s", r.opts.Username, userID)

	posts, err := r.opts.Source.LikedPosts(ctx, userID, r.opts.MaxResults)
	if err != nil {
		fatal = &FatalError{Kind: KindFetch, Err: err}
		return rep, fatal
	}
	rep.Fetched = len(posts)
	r.opts.Metrics.Fetched(len(posts))
	if len(posts) == 0 {
		rep.Empty = true
		logx.Infof("没有找到点赞的推文")
		return rep, nil
	}
	logx.Infof("获取到 %d 条点赞推文", len(posts))

	for _, p := range posts {
		if err := ctx.Err(); err != nil {
			fatal = err
			return rep, err
		}
		if !r.rules.IsToolRelated(p.Text) {
			rep.Skipped++
			r.opts.Metrics.Skipped()
			logx.Debugf("跳过非工具相关推文：%s", p.ID)
			continue
		}
		rep.Relevant++
		r.opts.Metrics.Relevant()
		r.process(ctx, rep, p)
	}

	logx.Infof("同步完成：获取=%d 相关=%d 写入=%d 失败=%d 跳过=%d",
		rep.Fetched, rep.Relevant, rep.Written, rep.Failed, rep.Skipped)
	return rep, nil
}

// process 映射并写入单条推文，结果计入报告、日志与指标。
func (r *Runner) process(ctx context.Context, rep *model.Report, p model.RawPost) {
	rec := r.mapper.Map(ctx, p)
	res, err := r.opts.Writer.Write(ctx, rec)
	out := model.ItemOutcome{
		PostID:     p.ID,
		Title:      rec.Title,
		Category:   rec.Category,
		HTTPStatus: res.Status,
		At:         time.Now(),
	}
	switch {
	case err != nil:
		out.Status = model.StatusFailed
		out.Error = err.Error()
		rep.Failed++
		r.opts.Metrics.Failed(res.Status)
		var we *notion.WriteError
		if errors.As(err, &we) {
			logx.Failf("保存到 Notion 失败：状态码=%d 响应=%s", we.Status, we.Body)
		} else {
			logx.Failf("保存到 Notion 失败：%v", err)
		}
	case r.opts.DryRun:
		out.Status = model.StatusDryRun
	default:
		out.Status = model.StatusWritten
		out.PageID = res.PageID
		rep.Written++
		r.opts.Metrics.Written(rec.Category)
		logx.Successf("成功保存到 Notion：%s", rec.Title)
	}
	if r.opts.Journal != nil {
		if err := r.opts.Journal.Record(journalContext(ctx), rep.RunID, out); err != nil {
			logx.Warnf("写入结果日志失败：%v", err)
		}
	}
}

// journalContext 返回不随运行取消的上下文，取消前已发生的写入仍会记入日志。
func journalContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
