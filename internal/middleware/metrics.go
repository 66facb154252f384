package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// httpRequestsTotal counts finished requests.
	// Labels: method, route (chi pattern), status
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remix",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "remix",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"method", "route"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "remix",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	// pipelineOutcomesTotal counts pipeline runs.
	// Labels: outcome ("ok" or the error kind), strategy (empty on failure)
	pipelineOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remix",
		Subsystem: "pipeline",
		Name:      "outcomes_total",
		Help:      "Extraction pipeline results by outcome and parse strategy",
	}, []string{"outcome", "strategy"})

	modelAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "remix",
		Subsystem: "model",
		Name:      "attempts_total",
		Help:      "Model describe calls by result",
	}, []string{"result"})

	modelLatencySeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "remix",
		Subsystem: "model",
		Name:      "latency_seconds",
		Help:      "Model describe call latency",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})
)

// PipelineMetrics records pipeline and model events into Prometheus.
type PipelineMetrics struct{}

func (PipelineMetrics) PipelineOutcome(kind, strategy string) {
	pipelineOutcomesTotal.WithLabelValues(kind, strategy).Inc()
}

func (PipelineMetrics) ModelAttempt(result string, took time.Duration) {
	modelAttemptsTotal.WithLabelValues(result).Inc()
	modelLatencySeconds.Observe(took.Seconds())
}

// MetricsMiddleware tracks request metrics by chi route pattern
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler serves the default registry in Prometheus text format
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
