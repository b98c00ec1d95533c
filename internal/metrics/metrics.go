// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は通知サイクルのPrometheusメトリクスを収集する。
// dispatcher.RunMetricsを実装する。
type Collector struct {
	runs             *prometheus.CounterVec
	runDuration      prometheus.Histogram
	sourceErrors     prometheus.Counter
	articlesNotified prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technotify_runs_total",
			Help: "通知サイクル実行の合計数（結果別）",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "technotify_run_duration_seconds",
			Help:    "通知サイクル1回の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technotify_source_errors_total",
			Help: "情報源単位のフェッチ/パース失敗の合計数",
		}),
		articlesNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "technotify_articles_notified_total",
			Help: "Slackへ通知された記事の合計数",
		}),
	}

	reg.MustRegister(
		c.runs,
		c.runDuration,
		c.sourceErrors,
		c.articlesNotified,
	)

	return c
}

// ObserveRun は通知サイクル1回の結果と所要時間を記録する。
func (c *Collector) ObserveRun(duration time.Duration, succeeded bool) {
	result := "success"
	if !succeeded {
		result = "failure"
	}
	c.runs.WithLabelValues(result).Inc()
	c.runDuration.Observe(duration.Seconds())
}

// AddSourceErrors は情報源単位のエラー数を加算する。
func (c *Collector) AddSourceErrors(count int) {
	c.sourceErrors.Add(float64(count))
}

// AddArticlesNotified は通知された記事数を加算する。
func (c *Collector) AddArticlesNotified(count int) {
	c.articlesNotified.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
