// Package metrics exposes Prometheus collectors for the profiles API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace of every metric.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRuntimeCollectors registers the Go runtime and process collectors.
func WithRuntimeCollectors() Option {
	return func(m *Manager) {
		m.runtime = true
	}
}

// Manager owns a registry and the collectors recorded by the API.
type Manager struct {
	namespace string
	runtime   bool
	registry  *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	profileWrites       *prometheus.CounterVec
	logins              *prometheus.CounterVec
	throttled           *prometheus.CounterVec
}

// NewManager creates a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "profiles_api",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.profileWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "profile_writes_total",
		Help:      "Successful profile writes by operation.",
	}, []string{"op"})

	m.logins = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	m.throttled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "throttled_requests_total",
		Help:      "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})

	return m
}

// Registry returns the registry holding the collectors.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method, code string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ProfileWritten records a successful profile create, update, partial update
// or destroy.
func (m *Manager) ProfileWritten(op string) {
	m.profileWrites.WithLabelValues(op).Inc()
}

// RecordLogin records a login attempt; result is "success", "invalid" or
// "error".
func (m *Manager) RecordLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// RecordThrottled records a request rejected by rate limiting.
func (m *Manager) RecordThrottled(route string) {
	m.throttled.WithLabelValues(route).Inc()
}
