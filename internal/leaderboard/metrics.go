package leaderboard

import (
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are labelled by cache key. A nil *Metrics records nothing.
type Metrics struct {
    CacheHits         *prometheus.CounterVec
    CacheMisses       *prometheus.CounterVec
    StoreErrors       *prometheus.CounterVec
    AggregateFailures *prometheus.CounterVec
    Fallbacks         *prometheus.CounterVec
    AggregateSeconds  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
    f := promauto.With(reg)
    return &Metrics{
        CacheHits: f.NewCounterVec(prometheus.CounterOpts{
            Name: "leaderboard_cache_hits_total",
            Help: "Requests answered from the cache.",
        }, []string{"board"}),
        CacheMisses: f.NewCounterVec(prometheus.CounterOpts{
            Name: "leaderboard_cache_misses_total",
            Help: "Requests that had to aggregate.",
        }, []string{"board"}),
        StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
            Name: "leaderboard_cache_store_errors_total",
            Help: "Cache store operations that failed.",
        }, []string{"board", "op"}),
        AggregateFailures: f.NewCounterVec(prometheus.CounterOpts{
            Name: "leaderboard_aggregate_failures_total",
            Help: "Aggregations that failed as a whole.",
        }, []string{"board"}),
        Fallbacks: f.NewCounterVec(prometheus.CounterOpts{
            Name: "leaderboard_fallback_entries_total",
            Help: "Entries replaced by a fallback record.",
        }, []string{"board"}),
        AggregateSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
            Name:    "leaderboard_aggregate_duration_seconds",
            Help:    "Wall time of one aggregation.",
            Buckets: prometheus.DefBuckets,
        }, []string{"board"}),
    }
}

func (m *Metrics) hit(board string) {
    if m == nil { return }
    m.CacheHits.WithLabelValues(board).Inc()
}

func (m *Metrics) miss(board string) {
    if m == nil { return }
    m.CacheMisses.WithLabelValues(board).Inc()
}

func (m *Metrics) storeError(board, op string) {
    if m == nil { return }
    m.StoreErrors.WithLabelValues(board, op).Inc()
}

func (m *Metrics) aggregated(board string, took time.Duration, err error) {
    if m == nil { return }
    m.AggregateSeconds.WithLabelValues(board).Observe(took.Seconds())
    if err != nil { m.AggregateFailures.WithLabelValues(board).Inc() }
}

// Fallback counts one substituted entry; it fits Engine.OnFallback.
func (m *Metrics) Fallback(board string) func(string, error) {
    return func(string, error) {
        if m == nil { return }
        m.Fallbacks.WithLabelValues(board).Inc()
    }
}
