package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce       sync.Once
	apiRequestsTotal   *prometheus.CounterVec
	apiLatencySeconds  *prometheus.HistogramVec
	apiErrorsTotal     *prometheus.CounterVec
	renderCacheCounter *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labreport",
			Name:      "requests_total",
			Help:      "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labreport",
			Name:      "latency_seconds",
			Help:      "Latency distribution for API requests.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labreport",
			Name:      "errors_total",
			Help:      "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		renderCacheCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labreport",
			Name:      "render_cache_events_total",
			Help:      "Render cache hits, misses, and invalidations.",
		}, []string{"event"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, renderCacheCounter)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RenderCacheEvents exposes the render cache event counter.
func RenderCacheEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return renderCacheCounter
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
