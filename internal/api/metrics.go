package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics aggregates the circulation counters exposed on /metrics.
type metrics struct {
	registry      *prometheus.Registry
	borrows       prometheus.Counter
	returns       prometheus.Counter
	loginFailures prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		borrows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circulation_borrows_total",
			Help: "Number of successful borrow operations.",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circulation_returns_total",
			Help: "Number of successful return operations.",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "circulation_login_failures_total",
			Help: "Number of failed authentication attempts.",
		}),
	}
	m.registry.MustRegister(m.borrows, m.returns, m.loginFailures)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
