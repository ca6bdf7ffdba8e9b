package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors
// ⭐ SSOT: 메트릭 등록은 여기서만
type Metrics struct {
	FetchTotal     *prometheus.CounterVec // source, outcome
	RetryTotal     *prometheus.CounterVec // source
	CacheTotal     *prometheus.CounterVec // cache, outcome (hit|miss)
	GateRejected   *prometheus.CounterVec // reason
	RunDuration    prometheus.Histogram
	RunInstruments prometheus.Histogram
}

// New registers and returns the pipeline metrics
func New() *Metrics {
	return &Metrics{
		FetchTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "fetch_total",
			Help:      "External fetch attempts by source and outcome",
		}, []string{"source", "outcome"}),
		RetryTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "retry_total",
			Help:      "Retries performed by source",
		}, []string{"source"}),
		CacheTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "cache_total",
			Help:      "Cache lookups by cache name and outcome",
		}, []string{"cache", "outcome"}),
		GateRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "gate_rejected_total",
			Help:      "Quality gate rejections by reason",
		}, []string{"reason"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "screener",
			Name:      "run_duration_seconds",
			Help:      "Analyze run duration",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		RunInstruments: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "screener",
			Name:      "run_instruments",
			Help:      "Instruments per analyze run",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

// Handler returns the HTTP handler serving /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
