/*
Package events implements the Store Event Bus: an in-memory,
non-blocking pub/sub broker that fans out StoreEvents to subscribers
filtered by (deployment, entity type), plus a Throttler that collapses
events during catch-up.

# Architecture

	┌─────────────── STORE EVENT BUS ───────────────┐
	│                                                │
	│  commit → Bus.Publish(*StoreEvent)            │
	│               │                                │
	│               ▼                                │
	│        broadcast loop (buffered, non-blocking) │
	│               │                                │
	│      ┌────────┴────────┐                       │
	│      ▼                 ▼                       │
	│  Subscriber A       Subscriber B                │
	│  (SubscriptionFilter)  (SubscriptionFilter)     │
	│      │                                          │
	│      ▼ (optional)                               │
	│  Throttler (sync-aware, interval-bounded)       │
	└────────────────────────────────────────────────┘

The broker owns one internal buffered channel (256 events) and a
broadcast goroutine, mirroring the broker this package is grounded on.
Publish only blocks while that queue is full (or until Stop); full
subscriber buffers skip rather than block the broadcaster.

# StoreEvent and filtering

A StoreEvent carries a monotonic tag (informational only — equality of
events ignores it) and a set of EntityChanges. A SubscriptionFilter
matches a change iff both its Deployment and EntityType equal the
change's; an event is forwarded to a subscriber iff at least one change
matches at least one of its filters.

# Throttler

The Throttler wraps a subscriber channel with the catch-up state
machine described in its own doc comment (throttle.go): while
!synced it accumulates events and emits at most once per interval; once
synced it passes events through unchanged.
*/
package events
