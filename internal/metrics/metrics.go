// 包 metrics 记录同步运行指标（独立 Registry），可选推送到 Pushgateway。
// 零值 *Recorder（nil）上的所有方法均为空操作。
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"x-notion-sync/internal/model"
)

const namespace = "xnotion"

// Recorder 持有本次运行的全部指标。
type Recorder struct {
	reg *prometheus.Registry

	fetched     prometheus.Counter
	relevant    prometheus.Counter
	skipped     prometheus.Counter
	written     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New 创建并注册指标。
func New() *Recorder {
	r := &Recorder{reg: prometheus.NewRegistry()}
	r.fetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_fetched_total",
		Help:      "Liked posts returned by the source",
	})
	r.relevant = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_relevant_total",
		Help:      "Liked posts that passed the relevance filter",
	})
	r.skipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_skipped_total",
		Help:      "Liked posts dropped by the relevance filter",
	})
	r.written = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_written_total",
		Help:      "Pages created in the note database by category",
	}, []string{"category"})
	r.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "record_write_failures_total",
		Help:      "Failed page creations by HTTP status",
	}, []string{"status"})
	r.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_duration_seconds",
		Help:      "Duration of the last sync run",
	})
	r.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last run that finished without a fatal error",
	})
	r.reg.MustRegister(
		r.fetched, r.relevant, r.skipped,
		r.written, r.failures,
		r.duration, r.lastSuccess,
	)
	return r
}

// Registry 暴露内部 Registry，便于测试或自定义导出。
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) Fetched(n int) {
	if r == nil {
		return
	}
	r.fetched.Add(float64(n))
}

func (r *Recorder) Relevant() {
	if r == nil {
		return
	}
	r.relevant.Inc()
}

func (r *Recorder) Skipped() {
	if r == nil {
		return
	}
	r.skipped.Inc()
}

func (r *Recorder) Written(c model.Category) {
	if r == nil {
		return
	}
	r.written.WithLabelValues(string(c)).Inc()
}

// Failed 按状态码计数；status 为 0（网络错误等）时记为 error。
func (r *Recorder) Failed(status int) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.failures.WithLabelValues(label).Inc()
}

// RunFinished 记录运行耗时；ok 为 true 时更新最近成功时间。
func (r *Recorder) RunFinished(d time.Duration, ok bool) {
	if r == nil {
		return
	}
	r.duration.Set(d.Seconds())
	if ok {
		r.lastSuccess.SetToCurrentTime()
	}
}

// Push 将指标推送到 Pushgateway，按 username 分组。
func (r *Recorder) Push(ctx context.Context, url, job, username string) error {
	if r == nil || url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(r.reg)
	if username != "" {
		p = p.Grouping("username", username)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
