package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Automatic build metrics
	BuildsGenerated   prometheus.Counter
	AutoBuildFailures *prometheus.CounterVec
	ComponentsCreated prometheus.Counter

	// Recommendation source metrics
	RecommendationLatency *prometheus.HistogramVec
	RecommendationErrors  *prometheus.CounterVec
	RecommendationRepairs prometheus.Counter

	// Query cache metrics
	QueryCacheLookups *prometheus.CounterVec

	// Cleanup metrics
	SweeperDeletions *prometheus.CounterVec
	SweeperRuns      *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. cache may be nil.
func InitMetrics(cache *QueryCache) *Metrics {
	metrics := &Metrics{
		BuildsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pcbuilder_auto_builds_total",
			Help: "Total number of automatic builds saved",
		}),

		// reason: "upstream", "compatibility", "store"
		AutoBuildFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pcbuilder_auto_build_failures_total",
			Help: "Total number of automatic build attempts that failed, by reason",
		}, []string{"reason"}),

		ComponentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pcbuilder_components_created_from_recommendations_total",
			Help: "Catalog entries created from recommendation details",
		}),

		RecommendationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pcbuilder_recommendation_duration_seconds",
			Help:    "Recommendation source latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),

		RecommendationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pcbuilder_recommendation_errors_total",
			Help: "Recommendation source failures by operation",
		}, []string{"operation"}),

		RecommendationRepairs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pcbuilder_recommendation_repaired_payloads_total",
			Help: "Recommendation payloads that only decoded after the repair pass",
		}),

		// result: "hit_memory", "hit_store", "miss"
		QueryCacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pcbuilder_query_cache_lookups_total",
			Help: "Query cache lookups by result",
		}, []string{"result"}),

		// record: "session_builds", "cached_queries"
		SweeperDeletions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pcbuilder_cleanup_deleted_total",
			Help: "Records removed by the cleanup sweeper",
		}, []string{"record"}),

		SweeperRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pcbuilder_cleanup_runs_total",
			Help: "Cleanup sweeper runs by status",
		}, []string{"status"}),
	}

	// Register a collector that reports the in-process cache size
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "pcbuilder_query_cache_memory_entries",
			Help: "Entries held by the in-process query cache tier",
		},
		func() float64 {
			if cache != nil {
				return float64(cache.MemoryEntries())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance, nil before InitMetrics.
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordBuildGenerated records a saved automatic build
func (m *Metrics) RecordBuildGenerated() {
	if m == nil {
		return
	}
	m.BuildsGenerated.Inc()
}

// RecordAutoBuildFailure records a failed automatic build attempt
func (m *Metrics) RecordAutoBuildFailure(reason string) {
	if m == nil {
		return
	}
	m.AutoBuildFailures.WithLabelValues(reason).Inc()
}

// RecordComponentCreated records a catalog entry created from recommendation details
func (m *Metrics) RecordComponentCreated() {
	if m == nil {
		return
	}
	m.ComponentsCreated.Inc()
}

// RecordRecommendation records latency and outcome of an upstream call
func (m *Metrics) RecordRecommendation(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.RecommendationLatency.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.RecommendationErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRepairedPayload records a payload that needed the repair pass
func (m *Metrics) RecordRepairedPayload() {
	if m == nil {
		return
	}
	m.RecommendationRepairs.Inc()
}

// RecordCacheLookup records a query cache lookup result
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.QueryCacheLookups.WithLabelValues(result).Inc()
}

// RecordSweep records one sweeper run
func (m *Metrics) RecordSweep(sessions, queries int64, err error) {
	if m == nil {
		return
	}
	m.SweeperDeletions.WithLabelValues("session_builds").Add(float64(sessions))
	m.SweeperDeletions.WithLabelValues("cached_queries").Add(float64(queries))
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SweeperRuns.WithLabelValues(status).Inc()
}
