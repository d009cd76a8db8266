package replay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the replay service.
type Metrics struct {
	queries      *prometheus.CounterVec
	rowsReturned prometheus.Counter
	registry     *prometheus.Registry
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replay_queries_total",
				Help:      "Total number of replay queries by outcome",
			},
			[]string{"outcome"},
		),
		rowsReturned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replay_rows_returned_total",
				Help:      "Total number of rows returned by replay queries",
			},
		),
	}
	registry.MustRegister(m.queries, m.rowsReturned)
	return m
}

// Handler returns the HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(rows int, err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.queries.WithLabelValues("ok").Inc()
		m.rowsReturned.Add(float64(rows))
	case IsClientError(err):
		m.queries.WithLabelValues("rejected").Inc()
	default:
		m.queries.WithLabelValues("error").Inc()
	}
}
