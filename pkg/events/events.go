package events

import (
	"sync"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// ChangeKind is the operation an EntityChange records: Insert and
// Overwrite modifications both yield Set.
type ChangeKind int

const (
	ChangeSet ChangeKind = iota
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSet:
		return "Set"
	case ChangeRemoved:
		return "Removed"
	default:
		return "Unknown"
	}
}

// EntityChange is one (deployment, entity_type, entity_id, operation)
// tuple. It is comparable so a set of changes can be represented as a
// Go map key.
type EntityChange struct {
	Deployment types.DeploymentID
	EntityType types.EntityType
	EntityID   string
	Kind       ChangeKind
}

// ChangeFromModification derives the EntityChange a single
// EntityModification yields: Insert/Overwrite map to Set, Remove maps
// to Removed.
func ChangeFromModification(m types.EntityModification) EntityChange {
	kind := ChangeSet
	if m.Kind == types.ModRemove {
		kind = ChangeRemoved
	}
	return EntityChange{
		Deployment: m.Key.Deployment,
		EntityType: m.Key.Type,
		EntityID:   m.Key.ID,
		Kind:       kind,
	}
}

// StoreEvent is one commit's worth of entity changes. Tag is a
// monotonically increasing, informational-only sequence number;
// equality between two events ignores it.
type StoreEvent struct {
	Tag     uint64
	Changes map[EntityChange]struct{}
}

// NewStoreEvent builds a StoreEvent from a modification list, as
// transact_block_operations does for the write path (package
// writepath).
func NewStoreEvent(tag uint64, mods []types.EntityModification) *StoreEvent {
	changes := make(map[EntityChange]struct{}, len(mods))
	for _, m := range mods {
		changes[ChangeFromModification(m)] = struct{}{}
	}
	return &StoreEvent{Tag: tag, Changes: changes}
}

// Equal compares two events ignoring Tag.
func (e *StoreEvent) Equal(other *StoreEvent) bool {
	if e == nil || other == nil {
		return e == other
	}
	if len(e.Changes) != len(other.Changes) {
		return false
	}
	for c := range e.Changes {
		if _, ok := other.Changes[c]; !ok {
			return false
		}
	}
	return true
}

// Extend returns a new event whose change set is the union of e and
// other's, keeping the later tag.
func (e *StoreEvent) Extend(other *StoreEvent) *StoreEvent {
	tag := e.Tag
	if other.Tag > tag {
		tag = other.Tag
	}
	merged := make(map[EntityChange]struct{}, len(e.Changes)+len(other.Changes))
	for c := range e.Changes {
		merged[c] = struct{}{}
	}
	for c := range other.Changes {
		merged[c] = struct{}{}
	}
	return &StoreEvent{Tag: tag, Changes: merged}
}

// IsEmpty reports whether the event carries no changes.
func (e *StoreEvent) IsEmpty() bool {
	return e == nil || len(e.Changes) == 0
}

// SubscriptionFilter matches a change iff both fields equal the
// change's.
type SubscriptionFilter struct {
	Deployment types.DeploymentID
	EntityType types.EntityType
}

func (f SubscriptionFilter) matches(c EntityChange) bool {
	return f.Deployment == c.Deployment && f.EntityType == c.EntityType
}

// matchesAny reports whether at least one change in the event matches
// at least one of filters.
func matchesAny(event *StoreEvent, filters []SubscriptionFilter) bool {
	for c := range event.Changes {
		for _, f := range filters {
			if f.matches(c) {
				return true
			}
		}
	}
	return false
}

// Subscriber is a channel that receives StoreEvents.
type Subscriber chan *StoreEvent

const subscriberBuffer = 64

// Bus is the multi-producer/multi-consumer Store Event Bus. Publish
// enqueues onto a 256-event queue and blocks only while that queue is
// full; a broadcast goroutine fans each event out to every subscriber
// whose filters match, skipping subscribers whose buffer is full
// rather than blocking.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Subscriber][]SubscriptionFilter

	eventCh chan *StoreEvent
	stopCh  chan struct{}
	tag     uint64
}

// NewBus creates a Bus. Call Start before the first Publish.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[Subscriber][]SubscriptionFilter),
		eventCh:     make(chan *StoreEvent, 256),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broadcast loop.
func (b *Bus) Start() {
	go b.run()
}

// Stop halts the broadcast loop. Subscriber channels are left open;
// callers should Unsubscribe explicitly.
func (b *Bus) Stop() {
	close(b.stopCh)
}

// Subscribe registers a new subscriber matching any of filters (an
// empty filter set matches nothing).
func (b *Bus) Subscribe(filters []SubscriptionFilter) Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, subscriberBuffer)
	b.subscribers[sub] = filters
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish enqueues event for broadcast, tagging it with the bus's
// monotonic counter if it carries the zero tag.
func (b *Bus) Publish(event *StoreEvent) {
	if event.Tag == 0 {
		b.mu.Lock()
		b.tag++
		event.Tag = b.tag
		b.mu.Unlock()
	}
	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Bus) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Bus) broadcast(event *StoreEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, filters := range b.subscribers {
		if !matchesAny(event, filters) {
			continue
		}
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
