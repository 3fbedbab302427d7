// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordReconciliation(outcome string)
	RecordRotation(outcome string)
	RecordBookkeepingFailure(step string)
	RecordProviderLatency(duration time.Duration)
	RecordSubmission(outcome string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	reconciliations     *prometheus.CounterVec
	rotations           *prometheus.CounterVec
	bookkeepingFailures *prometheus.CounterVec
	providerLatency     prometheus.Histogram
	submissions         *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castline_profile_reconciliations_total",
			Help: "プロフィール照合の結果別の合計数",
		}, []string{"outcome"}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castline_credential_rotations_total",
			Help: "管理者によるパスワード再発行の結果別の合計数",
		}, []string{"outcome"}),
		bookkeepingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castline_rotation_bookkeeping_failures_total",
			Help: "パスワード再発行後の監査ログ・フラグ更新の失敗数",
		}, []string{"step"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "castline_identity_provider_latency_seconds",
			Help:    "IdP管理API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castline_contact_submissions_total",
			Help: "問い合わせフォーム送信の結果別の合計数",
		}, []string{"outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "castline_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.reconciliations,
		c.rotations,
		c.bookkeepingFailures,
		c.providerLatency,
		c.submissions,
		c.httpStatus,
	)

	return c
}

// RecordReconciliation はプロフィール照合の結果を記録する。
func (c *Collector) RecordReconciliation(outcome string) {
	c.reconciliations.WithLabelValues(outcome).Inc()
}

// RecordRotation はパスワード再発行の結果を記録する。
func (c *Collector) RecordRotation(outcome string) {
	c.rotations.WithLabelValues(outcome).Inc()
}

// RecordBookkeepingFailure はベストエフォート処理の失敗を記録する。
func (c *Collector) RecordBookkeepingFailure(step string) {
	c.bookkeepingFailures.WithLabelValues(step).Inc()
}

// RecordProviderLatency はIdP呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(duration time.Duration) {
	c.providerLatency.Observe(duration.Seconds())
}

// RecordSubmission は問い合わせフォーム送信の結果を記録する。
func (c *Collector) RecordSubmission(outcome string) {
	c.submissions.WithLabelValues(outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
