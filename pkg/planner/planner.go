package planner

import (
	"context"
	"sort"

	"github.com/ledgerstore/ledgerstore/pkg/cache"
	"github.com/ledgerstore/ledgerstore/pkg/entitystore"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// Plan folds c's accumulated block buffer against read-through
// snapshots (batching any misses, grouped by entity type, into a single
// multi-get) into an ordered list of EntityModifications. It
// writes the resulting current value back into c's snapshot map so a
// second Plan call on the same now-unbuffered cache is a no-op.
func Plan(ctx context.Context, store entitystore.Reader, c *cache.Cache) ([]types.EntityModification, error) {
	buffer := c.BlockBuffer()

	if err := fillMissingSnapshots(ctx, store, c, buffer); err != nil {
		return nil, err
	}

	keys := make([]types.EntityKey, 0, len(buffer))
	for key := range buffer {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	mods := make([]types.EntityModification, 0, len(keys))
	for _, key := range keys {
		op := buffer[key]
		current, found, _ := c.SnapshotLookup(key)

		mod, newValue, newFound, emit := resolve(key, current, found, op)
		if emit {
			mods = append(mods, mod)
		}
		c.PutSnapshot(key, newValue, newFound)
	}
	return mods, nil
}

// resolve applies the current×op table of the modification planner to
// a single key.
func resolve(key types.EntityKey, current types.Entity, found bool, op types.EntityOp) (mod types.EntityModification, newValue types.Entity, newFound bool, emit bool) {
	switch op.Kind {
	case types.OpRemove:
		if !found {
			return types.EntityModification{}, nil, false, false
		}
		return types.EntityModification{Kind: types.ModRemove, Key: key}, nil, false, true

	case types.OpUpdate:
		base := current
		if !found {
			base = types.Entity{}
		}
		merged := types.MergeRemoveNullFields(base, op.Entity)
		if found && merged.Equal(current) {
			return types.EntityModification{}, merged, true, false
		}
		kind := types.ModOverwrite
		if !found {
			kind = types.ModInsert
		}
		return types.EntityModification{Kind: kind, Key: key, Data: merged}, merged, true, true

	case types.OpOverwrite:
		if !found {
			merged := types.MergeRemoveNullFields(types.Entity{}, op.Entity)
			return types.EntityModification{Kind: types.ModInsert, Key: key, Data: merged}, merged, true, true
		}
		if op.Entity.Equal(current) {
			return types.EntityModification{}, current, true, false
		}
		return types.EntityModification{Kind: types.ModOverwrite, Key: key, Data: op.Entity}, op.Entity, true, true
	}
	panic("planner: unreachable EntityOp kind")
}

// fillMissingSnapshots groups every buffered key whose snapshot is
// absent from c by entity type and issues one multi-get covering all
// of them. The deployment passed to GetMany is taken from the buffered
// keys; a cache buffers a single deployment.
func fillMissingSnapshots(ctx context.Context, store entitystore.Reader, c *cache.Cache, buffer map[types.EntityKey]types.EntityOp) error {
	missingByType := make(map[types.EntityType][]string)
	keysByID := make(map[types.EntityType]map[string]types.EntityKey)
	var deployment types.DeploymentID

	for key := range buffer {
		deployment = key.Deployment
		if _, _, ok := c.SnapshotLookup(key); ok {
			continue
		}
		missingByType[key.Type] = append(missingByType[key.Type], key.ID)
		if keysByID[key.Type] == nil {
			keysByID[key.Type] = make(map[string]types.EntityKey)
		}
		keysByID[key.Type][key.ID] = key
	}
	if len(missingByType) == 0 {
		return nil
	}

	found, err := store.GetMany(ctx, deployment, missingByType)
	if err != nil {
		return err
	}

	seen := make(map[types.EntityKey]bool)
	for entityType, entities := range found {
		for _, entity := range entities {
			id, _ := entity.ID()
			key, ok := keysByID[entityType][id]
			if !ok {
				continue
			}
			c.PutSnapshot(key, entity, true)
			seen[key] = true
		}
	}
	for entityType, ids := range missingByType {
		for _, id := range ids {
			key := keysByID[entityType][id]
			if !seen[key] {
				c.PutSnapshot(key, nil, false)
			}
		}
	}
	return nil
}
