/*
Package metrics provides Prometheus metrics collection and exposition for
ledgerstore.

Metrics are package-level collectors registered at init time. The
packages whose behavior they describe (cache, planner, events,
chainhead, writepath) do not update them; within this module only
cmd/ledgerstored does, setting ledgerstore_chain_head_number on each
head update and incrementing ledgerstore_chain_head_missing_ancestor_total
when an update attempt reports missing ancestors. /metrics exposes them
via promhttp.Handler for scraping.

# Metrics Catalog

Entity Cache:

ledgerstore_cache_hits_total{layer}:
  - Type: Counter
  - Description: Lookups resolved from "handler", "block", or "snapshot"

ledgerstore_cache_misses_total:
  - Type: Counter
  - Description: Lookups that required a store read

ledgerstore_cache_snapshot_entries:
  - Type: Gauge
  - Description: Current size of the LFU snapshot cache

Modification Planner:

ledgerstore_planner_modifications_total{kind}:
  - Type: Counter
  - Description: Modifications produced, by "insert"/"overwrite"/"remove"

ledgerstore_planner_noop_updates_total:
  - Type: Counter
  - Description: Buffered updates that resolved to no modification

ledgerstore_planner_plan_duration_seconds:
  - Type: Histogram
  - Description: Time to plan a block's buffered operations

Store Event Bus:

ledgerstore_bus_events_published_total:
  - Type: Counter

ledgerstore_bus_fanout_total{result}:
  - Type: Counter
  - Description: Per-subscriber deliveries, "delivered" or "dropped"

ledgerstore_bus_subscribers:
  - Type: Gauge

Throttler (per deployment label):

ledgerstore_throttler_synced{deployment}:
  - Type: Gauge (0/1)

ledgerstore_throttler_pending_changes{deployment}:
  - Type: Gauge

ledgerstore_throttler_emitted_total{deployment}:
  - Type: Counter

Chain Head Tracker (per deployment, network labels):

ledgerstore_chain_head_number{deployment,network}:
  - Type: Gauge

ledgerstore_chain_head_missing_ancestor_total{deployment,network}:
  - Type: Counter

ledgerstore_chain_head_cleanup_blocks_total{deployment,network}:
  - Type: Counter

Write Path:

ledgerstore_writepath_transact_duration_seconds:
  - Type: Histogram

ledgerstore_writepath_reverts_total:
  - Type: Counter

# Usage

	timer := metrics.NewTimer()
	mods, err := planner.Plan(ctx, store, c)
	timer.ObserveDuration(metrics.PlannerDuration)

	metrics.CacheHits.WithLabelValues("snapshot").Inc()

	http.Handle("/metrics", metrics.Handler())
*/
package metrics
