// ABOUTME: Prometheus metrics for query execution, rate limiting, and tool calls.
// ABOUTME: Registered via promauto; exposed by the HTTP server when metrics are enabled.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const prefix = "sf_mcp_"

var queriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "queries_total",
		Help: "Number of Starfish queries executed, by mode and outcome",
	},
	[]string{"mode", "outcome"},
)

var queryDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    prefix + "query_duration_seconds",
		Help:    "Wall time of Starfish queries, by mode",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	},
	[]string{"mode"},
)

var rateLimitRejections = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "rate_limit_rejections_total",
		Help: "Number of queries rejected by the rate governor",
	},
)

var tokenRefreshes = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: prefix + "token_refreshes_total",
		Help: "Number of bearer token refreshes against the Starfish API",
	},
)

var toolCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: prefix + "tool_calls_total",
		Help: "Number of MCP tool calls, by tool and outcome",
	},
	[]string{"tool", "outcome"},
)

// RecordQuery records one executed query. Mode is "sync" or "async";
// outcome is "ok" or "error".
func RecordQuery(mode string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	queriesTotal.WithLabelValues(mode, outcome).Inc()
	queryDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordRateLimitRejection counts a query turned away by the governor.
func RecordRateLimitRejection() {
	rateLimitRejections.Inc()
}

// RecordTokenRefresh counts a bearer token refresh.
func RecordTokenRefresh() {
	tokenRefreshes.Inc()
}

// RecordToolCall records one MCP tool invocation.
func RecordToolCall(tool string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	toolCalls.WithLabelValues(tool, outcome).Inc()
}
