// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store
	StoreConnectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_store_connect_attempts_total",
		Help: "The total number of store connection attempts",
	}, []string{"result"})

	StoreConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "harvest_store_connected",
		Help: "Whether the store connection is established (1) or not (0)",
	})

	PageQueries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_page_queries_total",
		Help: "The total number of paginated queries",
	}, []string{"collection", "result"})

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_http_requests_total",
		Help: "The total number of HTTP requests served",
	}, []string{"method", "status"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_http_request_duration_seconds",
		Help:    "The latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "harvest_http_rate_limited_total",
		Help: "The total number of requests rejected by the rate limiter",
	})

	// Events
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_events_published_total",
		Help: "The total number of domain events published",
	}, []string{"subject"})

	PublishErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_publish_errors_total",
		Help: "The total number of domain event publish errors",
	}, []string{"subject"})

	// Integrations
	IntegrationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_integration_requests_total",
		Help: "The total number of calls to external providers",
	}, []string{"integration", "result"})

	IntegrationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "harvest_integration_latency_seconds",
		Help:    "The latency of calls to external providers",
		Buckets: prometheus.DefBuckets,
	}, []string{"integration"})
)

func init() {
	prometheus.MustRegister(StoreConnectAttempts)
	prometheus.MustRegister(StoreConnected)
	prometheus.MustRegister(PageQueries)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPLatency)
	prometheus.MustRegister(RateLimited)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(PublishErrors)
	prometheus.MustRegister(IntegrationRequests)
	prometheus.MustRegister(IntegrationLatency)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
