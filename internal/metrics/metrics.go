// Package metrics exposes Prometheus collectors for HTTP traffic and plan activity.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fitclub"

// Metrics holds a private registry and the collectors registered in it.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	plansPersisted  *prometheus.CounterVec
	persistTimeouts prometheus.Counter
	draftsActive    prometheus.Gauge
	draftOps        *prometheus.CounterVec
	exports         *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"method", "path"}),
		plansPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nutrition_plans",
			Name:      "persisted_total",
			Help:      "Nutrition plan writes by operation and result.",
		}, []string{"op", "result"}),
		persistTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nutrition_plans",
			Name:      "persist_timeouts_total",
			Help:      "Nutrition plan writes that hit the persist deadline.",
		}),
		draftsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "plan_drafts",
			Name:      "active",
			Help:      "Plan drafts currently held in memory.",
		}),
		draftOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "plan_drafts",
			Name:      "operations_total",
			Help:      "Editor operations applied to drafts.",
		}, []string{"op", "result"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exports",
			Name:      "generated_total",
			Help:      "Plan exports generated by format.",
		}, []string{"format"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"path"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.plansPersisted,
		m.persistTimeouts,
		m.draftsActive,
		m.draftOps,
		m.exports,
		m.rateLimited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request count, latency and in-flight gauge.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := CanonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

// PlanPersisted counts a nutrition plan write. result is ok, error or timeout.
func (m *Metrics) PlanPersisted(op, result string) {
	if m == nil {
		return
	}
	m.plansPersisted.WithLabelValues(op, result).Inc()
	if result == "timeout" {
		m.persistTimeouts.Inc()
	}
}

// DraftsActive sets the number of live drafts.
func (m *Metrics) DraftsActive(n int) {
	if m == nil {
		return
	}
	m.draftsActive.Set(float64(n))
}

// DraftOp counts an editor operation applied to a draft.
func (m *Metrics) DraftOp(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.draftOps.WithLabelValues(op, result).Inc()
}

// ExportGenerated counts a rendered export.
func (m *Metrics) ExportGenerated(format string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(format).Inc()
}

// RateLimited counts a request rejected with 429.
func (m *Metrics) RateLimited(path string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(CanonicalPath(path)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

var (
	uuidSegment   = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	numberSegment = regexp.MustCompile(`^[0-9]+$`)
)

// CanonicalPath replaces id-like path segments so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		switch {
		case uuidSegment.MatchString(p):
			parts[i] = ":id"
		case numberSegment.MatchString(p):
			parts[i] = ":n"
		}
	}
	return "/" + strings.Join(parts, "/")
}
