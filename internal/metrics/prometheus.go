package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TotalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalsync_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "signalsync_http_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalsync_fetch_total",
			Help: "Performance data fetches by result",
		},
		[]string{"result"},
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "signalsync_fetch_duration_seconds",
			Help:    "Duration of performance data fetches",
			Buckets: prometheus.DefBuckets,
		},
	)

	StaleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "signalsync_stale_responses_total",
			Help: "Fetch responses discarded because a newer request was issued",
		},
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalsync_exports_total",
			Help: "Exports produced by format",
		},
		[]string{"format"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "signalsync_active_sessions",
			Help: "Number of dashboard sessions held in memory",
		},
	)

	SamplesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signalsync_samples_collected_total",
			Help: "Local host samples recorded by the history collector",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(TotalRequests)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(FetchTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(StaleResponses)
	prometheus.MustRegister(ExportsTotal)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SamplesCollected)
}

// MetricsMiddleware records request counts and latency per matched route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		TotalRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// ObserveFetch records the outcome of one performance data fetch
func ObserveFetch(result string, d time.Duration) {
	FetchTotal.WithLabelValues(result).Inc()
	FetchDuration.Observe(d.Seconds())
}

func IncrementStaleResponses() {
	StaleResponses.Inc()
}

func IncrementExports(format string) {
	ExportsTotal.WithLabelValues(format).Inc()
}

func SetActiveSessions(n int) {
	ActiveSessions.Set(float64(n))
}

func IncrementSamples(status string) {
	SamplesCollected.WithLabelValues(status).Inc()
}

// Handler exposes the default registry over HTTP
func Handler() http.Handler {
	return promhttp.Handler()
}
