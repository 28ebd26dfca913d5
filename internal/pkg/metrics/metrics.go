package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 予約・取消の結果ラベル
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusConflict = "conflict"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約の総数（status: success, rejected, conflict, error）
	BookingsTotal *prometheus.CounterVec

	// 取消の総数（status: success, not_found, conflict, error）
	CancellationsTotal *prometheus.CounterVec

	// 競合によるトランザクション再試行の総数（operation: book, cancel）
	TransactionRetriesTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec

	// 空席数キャッシュの参照結果（result: hit, miss, error）
	SeatCacheRequests *prometheus.CounterVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts by outcome",
			},
			[]string{"status"},
		),
		CancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cancellations_total",
				Help: "Total number of cancellation attempts by outcome",
			},
			[]string{"status"},
		),
		TransactionRetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "transaction_retries_total",
				Help: "Total number of transactions retried after a serialization conflict",
			},
			[]string{"operation"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
		SeatCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_cache_requests_total",
				Help: "Seat count cache lookups by result",
			},
			[]string{"result"},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.CancellationsTotal,
		m.TransactionRetriesTotal,
		m.DistributedLockDuration,
		m.SeatCacheRequests,
	)

	return m
}

// 以下のヘルパーは m が nil でも呼び出せる（メトリクス無効時）

func (m *Metrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCancellation(status string) {
	if m == nil {
		return
	}
	m.CancellationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveRetry(operation string) {
	if m == nil {
		return
	}
	m.TransactionRetriesTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveLock(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(seconds)
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.SeatCacheRequests.WithLabelValues(result).Inc()
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
