package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iho/bankledger/internal/domain"
)

// Metrics holds all Prometheus metrics. It implements usecase.MetricsRecorder.
type Metrics struct {
	// Ledger metrics
	Operations       *prometheus.CounterVec
	OperationLatency *prometheus.HistogramVec
	Conflicts        *prometheus.CounterVec
	Retries          *prometheus.CounterVec
	PessimisticLocks prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all metrics and registers them on reg. A nil reg uses a
// fresh registry, which keeps tests independent of the global one.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total ledger operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations including retries",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Conflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_conflicts_total",
				Help: "Total failed conditional writes",
			},
			[]string{"operation"},
		),
		Retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_retries_total",
				Help: "Total retried attempts",
			},
			[]string{"operation"},
		),
		PessimisticLocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_pessimistic_locks_total",
			Help: "Total scopes that locked their participants up front",
		}),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),

		gatherer: reg,
	}
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(operation string, outcome domain.Outcome, duration time.Duration) {
	m.Operations.WithLabelValues(operation, string(outcome)).Inc()
	m.OperationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncConflict counts a failed conditional write.
func (m *Metrics) IncConflict(operation string) {
	m.Conflicts.WithLabelValues(operation).Inc()
}

// IncRetry counts a retried attempt.
func (m *Metrics) IncRetry(operation string) {
	m.Retries.WithLabelValues(operation).Inc()
}

// IncPessimisticLock counts a scope that took the pessimistic path.
func (m *Metrics) IncPessimisticLock() {
	m.PessimisticLocks.Inc()
}
