package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Entity Cache metrics
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_cache_hits_total",
			Help: "Total cache lookups resolved from the handler buffer, block buffer, or snapshot cache",
		},
		[]string{"layer"},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerstore_cache_misses_total",
			Help: "Total cache lookups that required a store read",
		},
	)

	CacheSnapshotSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgerstore_cache_snapshot_entries",
			Help: "Number of entities currently held in the LFU snapshot cache",
		},
	)

	// Modification Planner metrics
	PlannerModificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_planner_modifications_total",
			Help: "Total entity modifications produced by the planner, by kind",
		},
		[]string{"kind"},
	)

	PlannerNoOpUpdatesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerstore_planner_noop_updates_total",
			Help: "Total buffered updates that resolved to no modification against the snapshot",
		},
	)

	PlannerDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerstore_planner_plan_duration_seconds",
			Help:    "Time to plan a block's buffered operations into entity modifications",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store Event Bus metrics
	EventBusPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerstore_bus_events_published_total",
			Help: "Total StoreEvents published to the bus",
		},
	)

	EventBusFanOutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_bus_fanout_total",
			Help: "Total per-subscriber deliveries, split between delivered and dropped",
		},
		[]string{"result"},
	)

	EventBusSubscribersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledgerstore_bus_subscribers",
			Help: "Current number of active bus subscribers",
		},
	)

	// Throttler metrics
	ThrottlerSynced = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgerstore_throttler_synced",
			Help: "Whether a deployment's throttler considers itself synced (1) or catching up (0)",
		},
		[]string{"deployment"},
	)

	ThrottlerPendingSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgerstore_throttler_pending_changes",
			Help: "Number of entity changes accumulated in the throttler's pending event",
		},
		[]string{"deployment"},
	)

	ThrottlerEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_throttler_emitted_total",
			Help: "Total events emitted downstream of the throttler",
		},
		[]string{"deployment"},
	)

	// Chain Head Tracker metrics
	ChainHeadNumber = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ledgerstore_chain_head_number",
			Help: "Block number of the confirmed chain head",
		},
		[]string{"deployment", "network"},
	)

	ChainHeadMissingAncestorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_chain_head_missing_ancestor_total",
			Help: "Total chain head update attempts that stopped on a missing ancestor",
		},
		[]string{"deployment", "network"},
	)

	ChainHeadCleanupBlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerstore_chain_head_cleanup_blocks_total",
			Help: "Total non-canonical blocks deleted by chain head cleanup",
		},
		[]string{"deployment", "network"},
	)

	// Write path metrics
	WritePathTransactDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ledgerstore_writepath_transact_duration_seconds",
			Help:    "Time to plan and commit a block's buffered operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	WritePathRevertsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerstore_writepath_reverts_total",
			Help: "Total block reverts applied to the entity store",
		},
	)
)

func init() {
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CacheSnapshotSize)

	prometheus.MustRegister(PlannerModificationsTotal)
	prometheus.MustRegister(PlannerNoOpUpdatesTotal)
	prometheus.MustRegister(PlannerDuration)

	prometheus.MustRegister(EventBusPublishedTotal)
	prometheus.MustRegister(EventBusFanOutTotal)
	prometheus.MustRegister(EventBusSubscribersTotal)

	prometheus.MustRegister(ThrottlerSynced)
	prometheus.MustRegister(ThrottlerPendingSize)
	prometheus.MustRegister(ThrottlerEmittedTotal)

	prometheus.MustRegister(ChainHeadNumber)
	prometheus.MustRegister(ChainHeadMissingAncestorTotal)
	prometheus.MustRegister(ChainHeadCleanupBlocksTotal)

	prometheus.MustRegister(WritePathTransactDuration)
	prometheus.MustRegister(WritePathRevertsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
