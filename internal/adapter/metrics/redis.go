package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Redis instrumentation, incremented by the redis adapter's client hooks.
var (
	RedisOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "ops_total",
		Help:      "Redis operations by command and status.",
	}, []string{"operation", "status"})

	RedisOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "op_duration_seconds",
		Help:      "Redis operation latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	RedisConnectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "connection_errors_total",
		Help:      "Failed Redis connection attempts.",
	})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"component"})

	CircuitBreakerStateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_state_changes_total",
		Help:      "Circuit breaker transitions by component and new state.",
	}, []string{"component", "state"})
)
