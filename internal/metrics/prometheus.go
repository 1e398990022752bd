package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Decisions processed, by decision and result",
		},
		[]string{"decision", "result"},
	)

	engineCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "approval_engine_call_duration_seconds",
			Help:    "Workflow engine call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	chatUpdateFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_chat_update_failures_total",
			Help: "Best-effort chat updates that failed",
		},
		[]string{"operation"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordDecision counts one finished interaction. result is a short label
// such as "approved", "auth_error" or "validation_error".
func RecordDecision(decision, result string) {
	decisionsTotal.WithLabelValues(decision, result).Inc()
}

func ObserveEngineCall(backend string, d time.Duration) {
	engineCallDuration.WithLabelValues(backend).Observe(d.Seconds())
}

func RecordChatUpdateFailure(operation string) {
	chatUpdateFailures.WithLabelValues(operation).Inc()
}

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, route string, statusCode int) {
	status := "unknown"
	if statusCode >= 100 {
		status = strconv.Itoa(statusCode/100) + "xx"
	}
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
