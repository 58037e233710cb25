// 包 logx 是对标准库 slog 的薄封装：
// - 支持级别/格式/语言/颜色配置，输出目标可替换（便于测试捕获）
// - pretty 格式输出中英文等级标签（[信息]/[INFO] 等）
// - Successf/Failf 输出同步状态行（✅ 成功写入 / ❌ 写入失败）
package logx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// levelSilent 高于所有等级，用于关闭输出。
const levelSilent slog.Level = 100

// Options 为日志初始化参数，零值即 info 级别 + pretty + 中文 + 自动颜色 + stdout。
type Options struct {
	Level  string
	Format string // text|json|pretty
	Locale string // zh-CN|en
	Color  string // auto|always|never
	Writer io.Writer
}

// Init 根据 Options 初始化全局日志器。
func Init(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	lv := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "json":
		handler = slog.NewJSONHandler(w, hopts)
	case "text":
		handler = slog.NewTextHandler(w, hopts)
	default:
		handler = NewPrettyHandler(w, lv, opts.Locale, opts.Color)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return levelSilent
	default:
		return slog.LevelInfo
	}
}

func Debugf(format string, v ...any) { slog.Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { slog.Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { slog.Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { slog.Error(fmt.Sprintf(format, v...)) }

// Successf 输出带 ✅ 标记的成功状态行（info 级别）。
func Successf(format string, v ...any) { slog.Info("✅ " + fmt.Sprintf(format, v...)) }

// Failf 输出带 ❌ 标记的失败状态行（error 级别）。
func Failf(format string, v ...any) { slog.Error("❌ " + fmt.Sprintf(format, v...)) }

// PrettyHandler 为人读格式：时间 + 等级标签 + 消息 + k=v 属性。
type PrettyHandler struct {
	w      io.Writer
	level  slog.Level
	locale string
	color  bool
	mu     *sync.Mutex
	attrs  []slog.Attr
	group  string
}

// NewPrettyHandler 创建 pretty Handler。
func NewPrettyHandler(w io.Writer, lv slog.Level, locale string, colorMode string) *PrettyHandler {
	if w == nil {
		w = os.Stdout
	}
	if locale == "" {
		locale = "zh-CN"
	}
	return &PrettyHandler{w: w, level: lv, locale: locale, color: shouldColor(w, colorMode), mu: &sync.Mutex{}}
}

func (h *PrettyHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.level < levelSilent && l >= h.level
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var buf bytes.Buffer
	buf.WriteString(ts.Format("2006-01-02 15:04:05"))
	buf.WriteByte(' ')
	lvl := levelLabel(h.locale, r.Level)
	if h.color {
		lvl = colorize(lvl, r.Level)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')
	buf.WriteString(r.Message)
	writeAttr := func(a slog.Attr) {
		buf.WriteByte(' ')
		if h.group != "" {
			buf.WriteString(h.group)
			buf.WriteByte('.')
		}
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	cp := *h
	if cp.group == "" {
		cp.group = name
	} else {
		cp.group += "." + name
	}
	return &cp
}

var (
	labelsZH = map[slog.Level]string{slog.LevelDebug: "[调试]", slog.LevelInfo: "[信息]", slog.LevelWarn: "[警告]", slog.LevelError: "[错误]"}
	labelsEN = map[slog.Level]string{slog.LevelDebug: "[DEBUG]", slog.LevelInfo: "[INFO]", slog.LevelWarn: "[WARN]", slog.LevelError: "[ERROR]"}
)

func levelLabel(locale string, l slog.Level) string {
	labels := labelsEN
	if strings.HasPrefix(strings.ToLower(locale), "zh") {
		labels = labelsZH
	}
	if s, ok := labels[l]; ok {
		return s
	}
	return fmt.Sprintf("[L%d]", l)
}

// shouldColor 遵循 LOG_COLOR 与 NO_COLOR；auto 时仅在终端上启用。
func shouldColor(w io.Writer, mode string) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "auto", "":
		if f, ok := w.(*os.File); ok {
			if fi, err := f.Stat(); err == nil {
				return fi.Mode()&os.ModeCharDevice != 0
			}
		}
	}
	return false
}

func colorize(s string, l slog.Level) string {
	code := "0"
	switch l {
	case slog.LevelDebug:
		code = "90"
	case slog.LevelInfo:
		code = "36"
	case slog.LevelWarn:
		code = "33"
	case slog.LevelError:
		code = "31"
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}
