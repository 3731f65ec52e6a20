package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/conversn-io/seniorsimple-sub006/internal/entity"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_deliveries_total",
			Help: "Lead delivery attempts by destination and outcome",
		},
		[]string{"destination", "outcome"},
	)

	leadDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lead_delivery_duration_seconds",
			Help:    "Time until a delivery attempt resolved, timeouts included",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"destination"},
	)

	validationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_lookups_total",
			Help: "Contact validations by kind and the source that answered",
		},
		[]string{"kind", "source"},
	)

	integrationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_errors_total",
			Help: "Total number of integration errors",
		},
		[]string{"service"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Metrics labels requests with the matched route pattern, not the raw path,
// so session ids in URLs do not explode label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func RecordIntegrationError(service string) {
	integrationErrors.WithLabelValues(service).Inc()
}

// PipelineObserver feeds dispatcher and validator events into Prometheus.
type PipelineObserver struct{}

func (PipelineObserver) ObserveDelivery(dest entity.Destination, outcome entity.Outcome, latency time.Duration) {
	leadDeliveries.WithLabelValues(string(dest), string(outcome)).Inc()
	leadDeliveryDuration.WithLabelValues(string(dest)).Observe(latency.Seconds())
	if outcome == entity.OutcomeError || outcome == entity.OutcomeTimeout {
		RecordIntegrationError(string(dest))
	}
}

func (PipelineObserver) ObserveValidation(kind entity.ValidationKind, source string) {
	validationLookups.WithLabelValues(string(kind), source).Inc()
	if source == "provider_error" {
		RecordIntegrationError(string(kind) + "_verifier")
	}
}
