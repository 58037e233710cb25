// 命令行入口：
// - 解析 flags 与 settings.yaml/.env/rules.yaml
// - 初始化日志、HTTP 客户端、来源/写入端/摘要器/运行日志/指标
// - 执行一轮同步，极简模式导出 report.json，按结果设置退出码
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"x-notion-sync/internal/config"
	"x-notion-sync/internal/export"
	"x-notion-sync/internal/fetch"
	"x-notion-sync/internal/logx"
	"x-notion-sync/internal/metrics"
	"x-notion-sync/internal/model"
	"x-notion-sync/internal/notion"
	"x-notion-sync/internal/rules"
	"x-notion-sync/internal/source"
	"x-notion-sync/internal/store"
	"x-notion-sync/internal/summary"
	"x-notion-sync/internal/syncer"
)

// 退出码
const (
	exitOK          = 0
	exitFatal       = 1
	exitItemFailure = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml (optional)")
		envPath    = flag.String("env", ".env", "path to .env (optional)")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		exportPath = flag.String("export", "report.json", "export run report when SIMPLE_MODE=true")
		dryRun     = flag.Bool("dry-run", false, "classify and print records without writing to Notion")
		strict     = flag.Bool("strict", false, "exit with code 2 when any record failed to write")
		reset      = flag.Bool("reset", false, "clear the run journal before syncing")
	)
	flag.Parse()
	exportSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "export" {
			exportSet = true
		}
	})

	// 1) 加载配置与规则
	cfg, err := config.Load(*configPath, *envPath)
	if err != nil {
		log.Printf("load config: %v", err)
		return exitFatal
	}
	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(logx.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Locale: cfg.LogLocale, Color: cfg.LogColor})

	rl := loadRules(*rulesPath)
	if err := cfg.CheckCredentials(*dryRun); err != nil {
		logx.Errorf("配置错误：%v", err)
		return exitFatal
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3) 初始化 HTTP 客户端（含代理与订阅源重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    cfg.HTTP.Timeout,
		Retry:      cfg.HTTP.Retry,
	})
	if err != nil {
		logx.Errorf("初始化 HTTP 客户端失败：%v", err)
		return exitFatal
	}

	// 4) 来源、写入端与摘要器
	src, err := source.NewFromConfig(cfg, cl)
	if err != nil {
		logx.Errorf("配置错误：%v", err)
		return exitFatal
	}
	nc := notion.New(cl, cfg.Notion)
	var writer notion.Writer = nc
	if *dryRun {
		writer = notion.DryRun{Client: nc}
	}
	var sum summary.Summarizer = summary.Truncate{}
	if cfg.Summary.Provider == "gemini" {
		gen, err := summary.NewGenAIGenerator(ctx, cfg.Summary.APIKey, cfg.Summary.Model)
		if err != nil {
			logx.Warnf("初始化 Gemini 失败，使用截断摘要：%v", err)
		} else {
			sum = summary.NewGemini(gen, cfg.Summary.Timeout)
		}
	}

	// 5) 运行日志：极简模式只收集内存数据；正常模式写入 SQLite
	var (
		journal syncer.Journal
		buf     *syncer.Buffer
		st      *store.SQLite
	)
	switch {
	case cfg.SimpleMode:
		buf = syncer.NewBuffer()
		journal = buf
	case cfg.Database.Type == "sqlite":
		st, err = store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			logx.Errorf("打开运行日志失败：%v", err)
			return exitFatal
		}
		defer st.Close()
		if *reset {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("清空运行日志失败：%v", err)
			} else {
				logx.Infof("已清空运行日志（runs/items）")
			}
		}
		journal = st
	}

	rec := metrics.New()
	runner := syncer.New(syncer.Options{
		Username:      cfg.X.Username,
		MaxResults:    cfg.X.MaxResults,
		StatusBaseURL: cfg.X.StatusBaseURL,
		DryRun:        *dryRun,
		Source:        src,
		Writer:        writer,
		Rules:         rl,
		Summarizer:    sum,
		Journal:       journal,
		Metrics:       rec,
	})

	// 6) 运行同步流程
	logx.Infof("开始同步：用户=@%s 来源=%s 极简模式=%v dry-run=%v", cfg.X.Username, src.Name(), cfg.SimpleMode, *dryRun)
	rep, runErr := runner.Run(ctx)

	// 7) 收尾：清理过期日志、导出报告、推送指标（失败仅告警）；运行被取消后同样执行
	tail := context.WithoutCancel(ctx)
	if st != nil {
		if err := st.CleanOld(tail, cfg.JournalClean); err != nil {
			logx.Warnf("清理过期运行日志失败：%v", err)
		}
	}
	finishExport(tail, rep, buf, st, *exportPath, exportSet)
	if shouldPushMetrics(runErr) {
		pushCtx, cancel := context.WithTimeout(tail, 10*time.Second)
		defer cancel()
		if err := rec.Push(pushCtx, cfg.Metrics.Pushgateway, cfg.Metrics.Job, cfg.X.Username); err != nil {
			logx.Warnf("推送指标失败：%v", err)
		}
	}

	if runErr != nil {
		var fe *syncer.FatalError
		if errors.As(runErr, &fe) && fe.Kind == syncer.KindConfig {
			logx.Errorf("配置错误：%v（请设置 %s）", fe.Err, config.EnvUsername)
		} else {
			logx.Errorf("同步失败：%v", runErr)
		}
	}
	return exitCode(rep, runErr, *strict)
}

// loadRules 加载关键词规则；文件缺失或无效时告警并回退到内置规则，路径为空时直接使用内置规则。
func loadRules(path string) *rules.Rules {
	if path == "" {
		return rules.Default()
	}
	r, err := rules.Load(path)
	switch {
	case err == nil:
		return r
	case errors.Is(err, os.ErrNotExist):
		logx.Warnf("未找到规则文件 %s，使用内置规则", path)
	default:
		logx.Warnf("加载规则失败，使用内置规则：%v", err)
	}
	return rules.Default()
}

// exitCode 致命错误为 1；-strict 下存在写入失败为 2；其余（含空结果）为 0。
func exitCode(rep *model.Report, runErr error, strict bool) int {
	if runErr != nil {
		return exitFatal
	}
	if strict && rep != nil && rep.Failed > 0 {
		return exitItemFailure
	}
	return exitOK
}

// shouldPushMetrics 配置错误时运行尚未开始，不推送指标。
func shouldPushMetrics(runErr error) bool {
	var fe *syncer.FatalError
	return !(errors.As(runErr, &fe) && fe.Kind == syncer.KindConfig)
}

type exportSource int

const (
	exportNone exportSource = iota
	exportBuffer
	exportStore
	exportReport
)

// chooseExport 极简模式总是导出内存结果；正常模式仅在显式指定 -export 时导出，有运行日志时从日志读取。
func chooseExport(path string, simple, journaled, explicit bool) exportSource {
	switch {
	case path == "":
		return exportNone
	case simple:
		return exportBuffer
	case !explicit:
		return exportNone
	case journaled:
		return exportStore
	default:
		return exportReport
	}
}

func finishExport(ctx context.Context, rep *model.Report, buf *syncer.Buffer, st *store.SQLite, path string, explicit bool) {
	if rep == nil {
		return
	}
	var err error
	switch chooseExport(path, buf != nil, st != nil, explicit) {
	case exportBuffer:
		out := *rep
		out.Items = buf.Snapshot()
		err = export.ToJSON(&out, path)
	case exportStore:
		err = export.FromStore(ctx, st, rep, path)
	case exportReport:
		err = export.ToJSON(rep, path)
	default:
		return
	}
	if err != nil {
		logx.Warnf("导出报告失败：%v", err)
		return
	}
	logx.Infof("已导出 %s", path)
}
