package httputil

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_mcp_http_requests_total",
			Help: "HTTP requests handled by the MCP gateway.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghost_mcp_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	toolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghost_mcp_tool_calls_total",
			Help: "Tool calls by tool name and result.",
		},
		[]string{"tool", "result"},
	)
)

// Metrics records request counts and latency per route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(started).Seconds())
	})
}

// ObserveToolCall counts one finished tool call.
func ObserveToolCall(tool, result string) {
	toolCallsTotal.WithLabelValues(tool, result).Inc()
}

// MetricsHandler serves the prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
