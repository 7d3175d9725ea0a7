package metric

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attrmesh"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	// Accessor metrics
	AttributeOps    *prometheus.CounterVec
	DeferredWrites  prometheus.Counter
	DeferredFlushes prometheus.Counter

	// Session metrics
	SessionsActive      prometheus.Gauge
	SessionsCreated     prometheus.Counter
	SessionsExpired     prometheus.Counter
	SessionsInvalidated prometheus.Counter

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with all attrmesh metrics and the Go
// runtime and process collectors registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		AttributeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attribute_operations_total",
			Help:      "Attribute operations by operation and scope.",
		}, []string{"op", "scope"}),
		DeferredWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_writes_total",
			Help:      "Global session writes deferred because no session was available after completion.",
		}),
		DeferredFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_flushes_total",
			Help:      "Deferred global session writes applied once a session became available.",
		}),

		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held by the repository.",
		}),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Sessions created.",
		}),
		SessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions removed after exceeding their inactivity interval.",
		}),
		SessionsInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_invalidated_total",
			Help:      "Sessions explicitly invalidated.",
		}),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.AttributeOps,
		r.DeferredWrites,
		r.DeferredFlushes,
		r.SessionsActive,
		r.SessionsCreated,
		r.SessionsExpired,
		r.SessionsInvalidated,
		r.RequestsTotal,
		r.RequestDuration,
	)

	return r
}

// Registerer exposes the underlying registry so other packages can add
// their own collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.registry
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// AttributeOp counts one accessor operation.
func (r *Registry) AttributeOp(op, scope string) {
	if r == nil {
		return
	}
	r.AttributeOps.WithLabelValues(op, scope).Inc()
}

// DeferredWrite counts one deferred global write.
func (r *Registry) DeferredWrite() {
	if r == nil {
		return
	}
	r.DeferredWrites.Inc()
}

// DeferredFlush counts n deferred writes applied to a session.
func (r *Registry) DeferredFlush(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.DeferredFlushes.Add(float64(n))
}

// SessionCreated records a new session.
func (r *Registry) SessionCreated() {
	if r == nil {
		return
	}
	r.SessionsCreated.Inc()
	r.SessionsActive.Inc()
}

// SessionsRemoved records n sessions leaving the repository.
func (r *Registry) SessionsRemoved(n int, expired bool) {
	if r == nil || n <= 0 {
		return
	}
	r.SessionsActive.Sub(float64(n))
	if expired {
		r.SessionsExpired.Add(float64(n))
	} else {
		r.SessionsInvalidated.Add(float64(n))
	}
}

// SetSessionsActive overwrites the active session gauge, e.g. after recovery.
func (r *Registry) SetSessionsActive(n int) {
	if r == nil {
		return
	}
	r.SessionsActive.Set(float64(n))
}

// ObserveRequest records one completed HTTP request.
func (r *Registry) ObserveRequest(method string, code int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
