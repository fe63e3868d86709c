package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	ticketsCreated       prometheus.Counter
	approvalsResolved    *prometheus.CounterVec
	installsCompleted    prometheus.Counter
	installsCancelled    prometheus.Counter
	notificationsFailed  prometheus.Counter
	invalidTokens        prometheus.Counter
	catalogMisses        prometheus.Counter
}

// NewMetrics registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP requests that ended in a domain error.",
		}, []string{"method", "path", "code"}),
		ticketsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_tickets_created_total",
			Help: "Tickets created, one per resolved line item.",
		}),
		approvalsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provisioning_approvals_resolved_total",
			Help: "Approval tokens resolved by decision.",
		}, []string{"decision"}),
		installsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_installs_completed_total",
			Help: "Simulated installations that reached Installed.",
		}),
		installsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_installs_cancelled_total",
			Help: "Installations cancelled after rejection.",
		}),
		notificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_notifications_failed_total",
			Help: "Approval requests that no channel delivered.",
		}),
		invalidTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_invalid_tokens_total",
			Help: "Approval callbacks with unknown or already resolved tokens.",
		}),
		catalogMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provisioning_catalog_misses_total",
			Help: "Line items that matched no catalog entry.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpRequestDuration,
		m.httpErrors,
		m.ticketsCreated,
		m.approvalsResolved,
		m.installsCompleted,
		m.installsCancelled,
		m.notificationsFailed,
		m.invalidTokens,
		m.catalogMisses,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest observes one HTTP request.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) TicketCreated() {
	if m != nil {
		m.ticketsCreated.Inc()
	}
}

func (m *Metrics) ApprovalResolved(decision string) {
	if m != nil {
		m.approvalsResolved.WithLabelValues(decision).Inc()
	}
}

func (m *Metrics) InstallCompleted() {
	if m != nil {
		m.installsCompleted.Inc()
	}
}

func (m *Metrics) InstallCancelled() {
	if m != nil {
		m.installsCancelled.Inc()
	}
}

func (m *Metrics) NotificationFailed() {
	if m != nil {
		m.notificationsFailed.Inc()
	}
}

func (m *Metrics) InvalidToken() {
	if m != nil {
		m.invalidTokens.Inc()
	}
}

func (m *Metrics) CatalogMiss() {
	if m != nil {
		m.catalogMisses.Inc()
	}
}
