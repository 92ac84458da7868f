package cache

import (
	"context"
	"fmt"

	"github.com/ledgerstore/ledgerstore/pkg/entitystore"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// typenameAttr is the synthetic query-time-only field stripped from
// every store snapshot before it enters the cache.
const typenameAttr = "__typename"

// OpEntry pairs a key with the op Append should fold in; the bulk
// form of Set/Remove used outside a handler.
type OpEntry struct {
	Key types.EntityKey
	Op  types.EntityOp
}

const defaultSnapshotCapacity = 10_000

// Cache is the per-block, per-deployment Entity Cache. It is owned by
// exactly one cooperative task for the duration of one block; it is
// not safe for concurrent use by multiple goroutines.
type Cache struct {
	deployment types.DeploymentID
	store      entitystore.Reader

	snapshots *lfu

	blockBuffer   map[types.EntityKey]types.EntityOp
	handlerBuffer map[types.EntityKey]types.EntityOp
	inHandler     bool
}

// New creates a Cache for deployment reading through to store, with an
// LFU snapshot budget of capacity entries. Pass capacity <= 0 to use a
// sensible default.
func New(store entitystore.Reader, deployment types.DeploymentID, capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultSnapshotCapacity
	}
	return &Cache{
		deployment:    deployment,
		store:         store,
		snapshots:     newLFU(capacity),
		blockBuffer:   make(map[types.EntityKey]types.EntityOp),
		handlerBuffer: make(map[types.EntityKey]types.EntityOp),
	}
}

// Get resolves key by consulting the handler buffer, then the block
// buffer, then a read-through snapshot, applying each pending op on
// top of whatever lies beneath it.
func (c *Cache) Get(ctx context.Context, key types.EntityKey) (types.Entity, bool, error) {
	base, found, err := c.snapshot(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if op, ok := c.blockBuffer[key]; ok {
		base, found = applyOp(base, found, op)
	}
	if c.inHandler {
		if op, ok := c.handlerBuffer[key]; ok {
			base, found = applyOp(base, found, op)
		}
	}
	if !found {
		return nil, false, nil
	}
	return base, true, nil
}

// snapshot returns the store's view of key, consulting the LFU cache
// first and populating it on miss. __typename is stripped once, here,
// before the value ever enters the cache.
func (c *Cache) snapshot(ctx context.Context, key types.EntityKey) (types.Entity, bool, error) {
	if entity, found, ok := c.snapshots.get(key); ok {
		return entity, found, nil
	}
	entity, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		entity = stripTypename(entity)
	}
	c.snapshots.put(key, entity, found)
	return entity, found, nil
}

func stripTypename(e types.Entity) types.Entity {
	if _, ok := e[typenameAttr]; !ok {
		return e
	}
	out := e.Clone()
	delete(out, typenameAttr)
	return out
}

// applyOp computes the entity visible after applying op on top of a
// beneath value, using the same current×op resolution as the
// modification planner's table: Remove clears, Overwrite
// replaces, Update merges with null-removal against beneath (or the
// empty entity if beneath is absent).
func applyOp(beneath types.Entity, beneathFound bool, op types.EntityOp) (types.Entity, bool) {
	switch op.Kind {
	case types.OpRemove:
		return nil, false
	case types.OpOverwrite:
		return op.Entity, true
	case types.OpUpdate:
		base := beneath
		if !beneathFound {
			base = types.Entity{}
		}
		return types.MergeRemoveNullFields(base, op.Entity), true
	}
	panic("cache: unreachable EntityOp kind")
}

// Set records Update(entity) for key in the active buffer (the
// handler buffer if inside a handler, the block buffer otherwise).
func (c *Cache) Set(key types.EntityKey, entity types.Entity) {
	c.recordOp(key, types.UpdateOp(entity))
}

// Remove records Remove for key in the active buffer.
func (c *Cache) Remove(key types.EntityKey) {
	c.recordOp(key, types.RemoveOp)
}

func (c *Cache) recordOp(key types.EntityKey, op types.EntityOp) {
	buffer := c.blockBuffer
	if c.inHandler {
		buffer = c.handlerBuffer
	}
	if current, ok := buffer[key]; ok {
		buffer[key] = current.Accumulate(op)
	} else {
		buffer[key] = op
	}
}

// Append is the bulk form of Set/Remove; legal only outside a
// handler.
func (c *Cache) Append(ops []OpEntry) {
	if c.inHandler {
		panic("cache: Append called while inside a handler")
	}
	for _, e := range ops {
		c.recordOp(e.Key, e.Op)
	}
}

// EnterHandler opens the handler buffer. Nested handlers are a
// programmer error and panic.
func (c *Cache) EnterHandler() {
	if c.inHandler {
		panic("cache: EnterHandler called while already inside a handler")
	}
	c.inHandler = true
	c.handlerBuffer = make(map[types.EntityKey]types.EntityOp)
}

// ExitHandler folds the handler buffer into the block buffer via the
// accumulation law and closes the handler scope.
func (c *Cache) ExitHandler() {
	if !c.inHandler {
		panic("cache: ExitHandler called while not inside a handler")
	}
	for key, op := range c.handlerBuffer {
		if current, ok := c.blockBuffer[key]; ok {
			c.blockBuffer[key] = current.Accumulate(op)
		} else {
			c.blockBuffer[key] = op
		}
	}
	c.handlerBuffer = make(map[types.EntityKey]types.EntityOp)
	c.inHandler = false
}

// ExitHandlerAndDiscardChanges closes the handler scope and discards
// every op recorded in it.
func (c *Cache) ExitHandlerAndDiscardChanges() {
	if !c.inHandler {
		panic("cache: ExitHandlerAndDiscardChanges called while not inside a handler")
	}
	c.handlerBuffer = make(map[types.EntityKey]types.EntityOp)
	c.inHandler = false
}

// InHandler reports whether the cache currently has an open handler
// scope.
func (c *Cache) InHandler() bool {
	return c.inHandler
}

// Extend merges other's snapshots and pending block-buffer ops into
// c. other must not currently be inside a handler.
func (c *Cache) Extend(other *Cache) {
	if other.inHandler {
		panic("cache: Extend called with a donor cache inside a handler")
	}
	c.snapshots.extend(other.snapshots)
	for key, op := range other.blockBuffer {
		if current, ok := c.blockBuffer[key]; ok {
			c.blockBuffer[key] = current.Accumulate(op)
		} else {
			c.blockBuffer[key] = op
		}
	}
}

// BlockBuffer returns the accumulated (key, op) pairs for the current
// block, for consumption by the modification planner.
func (c *Cache) BlockBuffer() map[types.EntityKey]types.EntityOp {
	return c.blockBuffer
}

// ClearBlockBuffer discards the block buffer, called once the
// planner's modifications for it have been committed.
func (c *Cache) ClearBlockBuffer() {
	c.blockBuffer = make(map[types.EntityKey]types.EntityOp)
}

// SnapshotLookup returns the cached snapshot for key without touching
// the store, for use by the planner's multi-get batching step.
func (c *Cache) SnapshotLookup(key types.EntityKey) (types.Entity, bool, bool) {
	return c.snapshots.get(key)
}

// PutSnapshot populates the snapshot cache directly, used by the
// planner after a batched multi-get fills in keys the cache had not
// yet touched.
func (c *Cache) PutSnapshot(key types.EntityKey, entity types.Entity, found bool) {
	c.snapshots.put(key, entity, found)
}

// Deployment returns the deployment this cache buffers state for.
func (c *Cache) Deployment() types.DeploymentID {
	return c.deployment
}

func (c *Cache) String() string {
	return fmt.Sprintf("cache(%s, block=%d, handler=%d, inHandler=%v)", c.deployment, len(c.blockBuffer), len(c.handlerBuffer), c.inHandler)
}
