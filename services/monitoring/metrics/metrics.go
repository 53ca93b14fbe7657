package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nexa_wallet"

// Metrics is safe to use through a nil pointer; every observer is a no-op then.
type Metrics struct {
	registry *prometheus.Registry

	transactionsTotal   *prometheus.CounterVec
	resolutionsTotal    *prometheus.CounterVec
	reversalsTotal      prometheus.Counter
	duplicatesTotal     *prometheus.CounterVec
	webhookEventsTotal  *prometheus.CounterVec
	providerCallSeconds *prometheus.HistogramVec
	sweepRunsTotal      *prometheus.CounterVec
	sweepResolved       prometheus.Counter
	cleanupDeletedTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		transactionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "transactions_total",
				Help:      "Transactions accepted partitioned by type and initial status.",
			},
			[]string{"type", "status"},
		),
		resolutionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "resolutions_total",
				Help:      "Pending transactions moved to a terminal status, partitioned by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		reversalsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ledger",
				Name:      "reversals_total",
				Help:      "Reversal credits applied for failed transactions.",
			},
		),
		duplicatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idempotency",
				Name:      "duplicates_total",
				Help:      "Requests answered from a prior outcome, partitioned by scope.",
			},
			[]string{"scope"},
		),
		webhookEventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Provider events received partitioned by result.",
			},
			[]string{"result"},
		),
		providerCallSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "call_seconds",
				Help:      "Latency of outbound provider calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "result"},
		),
		sweepRunsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "runs_total",
				Help:      "Pending sweep runs partitioned by result.",
			},
			[]string{"result"},
		),
		sweepResolved: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sweep",
				Name:      "resolved_total",
				Help:      "Pending transactions resolved by the sweep.",
			},
		),
		cleanupDeletedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idempotency",
				Name:      "cleanup_deleted_total",
				Help:      "Expired idempotency records deleted.",
			},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTransaction(txType, status string) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues(txType, status).Inc()
}

func (m *Metrics) ObserveResolution(source, outcome string, reversed bool) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(source, outcome).Inc()
	if reversed {
		m.reversalsTotal.Inc()
	}
}

func (m *Metrics) ObserveDuplicate(scope string) {
	if m == nil {
		return
	}
	m.duplicatesTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveWebhook(result string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveProviderCall(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.providerCallSeconds.WithLabelValues(operation, result).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveSweep(resolved int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.sweepRunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.sweepRunsTotal.WithLabelValues("ok").Inc()
	m.sweepResolved.Add(float64(resolved))
}

func (m *Metrics) ObserveCleanup(deleted int64) {
	if m == nil {
		return
	}
	m.cleanupDeletedTotal.Add(float64(deleted))
}
