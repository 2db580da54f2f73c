package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes, one per terminal state of a request.
const (
	OutcomeRejected  = "rejected"
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "k8s_agent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "k8s_agent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	commandExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "k8s_agent",
			Subsystem: "command",
			Name:      "executions_total",
			Help:      "Commands received, by outcome.",
		},
		[]string{"outcome"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "k8s_agent",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Wall time of executed commands in seconds.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, commandExecutions, commandDuration)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCommand counts one request outcome. Rejected commands never run, so
// their duration is not observed.
func RecordCommand(outcome string, duration time.Duration) {
	RegisterMetrics()
	commandExecutions.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRejected {
		commandDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	}
}
