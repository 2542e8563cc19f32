package infra

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the currency screen.
// Each instance owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	CatalogLoads   *prometheus.CounterVec
	Commits        *prometheus.CounterVec
	StaleResults   *prometheus.CounterVec
	CallLatency    *prometheus.HistogramVec
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "local_currency"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CatalogLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_loads_total",
			Help:      "Catalog loads by result",
		}, []string{"result"}),
		Commits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Selection commits by result",
		}, []string{"result"}),
		StaleResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Async results discarded because a newer request superseded them",
		}, []string{"kind"}),
		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Collaborator call latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Open renderer sessions",
		}),
	}
}

func (m *Metrics) CatalogLoaded(elapsed time.Duration, err error) {
	m.CatalogLoads.WithLabelValues(result(err)).Inc()
	m.CallLatency.WithLabelValues("catalog").Observe(elapsed.Seconds())
}

func (m *Metrics) CommitFinished(elapsed time.Duration, err error) {
	m.Commits.WithLabelValues(result(err)).Inc()
	m.CallLatency.WithLabelValues("commit").Observe(elapsed.Seconds())
}

func (m *Metrics) StaleResultDiscarded(kind string) {
	m.StaleResults.WithLabelValues(kind).Inc()
}

func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }

// Registry exposes the underlying registry (tests, extra collectors).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
