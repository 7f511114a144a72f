package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseOperationLatency records document store latency by operation and collection.
	DatabaseOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fitness_database_operation_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// DatabaseErrors counts failed document store operations.
	DatabaseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_database_errors_total",
		Help: "Total number of document store errors by operation and collection",
	}, []string{"operation", "collection"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// AuthFailures counts rejected authentications by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_auth_failures_total",
		Help: "Total number of rejected authentication attempts by reason",
	}, []string{"reason"})

	// RecommendationRequests counts recommendation outcomes.
	RecommendationRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fitness_recommendation_requests_total",
		Help: "Total number of recommendation requests by outcome",
	}, []string{"outcome"})

	// RecommendationLatency records end-to-end engine latency, retries included.
	RecommendationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fitness_recommendation_latency_seconds",
		Help:    "Recommendation engine latency in seconds",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})
)
