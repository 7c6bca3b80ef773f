package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics exposes the engine's operational counters on the default
// Prometheus registry.
type EngineMetrics struct {
	recommendationRequests *prometheus.CounterVec
	recommendationLatency  prometheus.Histogram
	cacheHits              prometheus.Counter
	cacheMisses            prometheus.Counter
	trainingRuns           prometheus.Counter
	trainingLatency        prometheus.Histogram
	staleCacheRefits       prometheus.Counter
	explorationTriggers    prometheus.Counter
}

func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		recommendationRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Recommendation requests served, by outcome",
		}, []string{"outcome"}),
		recommendationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Time to produce one student's recommendations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Result cache hits",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Result cache misses",
		}),
		trainingRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "model_training_runs_total",
			Help: "Full scorer training passes",
		}),
		trainingLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Time for one full training pass",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		staleCacheRefits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "model_stale_cache_refits_total",
			Help: "Persisted model state discarded because the corpus changed",
		}),
		explorationTriggers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exploration_triggers_total",
			Help: "Rankings perturbed by epsilon-greedy exploration",
		}),
	}
}

// All recording methods tolerate a nil receiver so the engine can run
// without metrics wired, as tests do.

func (m *EngineMetrics) ObserveRequest(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.recommendationRequests.WithLabelValues(outcome).Inc()
	m.recommendationLatency.Observe(elapsed.Seconds())
}

func (m *EngineMetrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *EngineMetrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *EngineMetrics) ObserveTraining(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.trainingRuns.Inc()
	m.trainingLatency.Observe(elapsed.Seconds())
}

func (m *EngineMetrics) StaleCacheRefit() {
	if m == nil {
		return
	}
	m.staleCacheRefits.Inc()
}

func (m *EngineMetrics) ExplorationTriggered() {
	if m == nil {
		return
	}
	m.explorationTriggers.Inc()
}
