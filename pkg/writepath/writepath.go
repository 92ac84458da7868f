package writepath

import (
	"context"

	"github.com/ledgerstore/ledgerstore/pkg/cache"
	"github.com/ledgerstore/ledgerstore/pkg/entitystore"
	"github.com/ledgerstore/ledgerstore/pkg/events"
	"github.com/ledgerstore/ledgerstore/pkg/log"
	"github.com/ledgerstore/ledgerstore/pkg/planner"
	"github.com/ledgerstore/ledgerstore/pkg/storeerr"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// TransactBlockOperations plans c's accumulated block buffer,
// atomically applies the resulting modifications to store, advances
// the deployment's block pointer to blockTo, clears c's block buffer
// on success, and publishes exactly one StoreEvent on bus. deployment
// is taken from c. parentHash must be blockTo's parent hash; the store
// rejects the commit with a ConstraintViolation if it does not match
// the deployment's current pointer.
//
// On any failure the store is left unchanged (store.TransactBlockOperations
// itself runs in one transaction) and no event is published.
func TransactBlockOperations(ctx context.Context, c *cache.Cache, store entitystore.Store, bus *events.Bus, blockTo types.BlockPointer, parentHash [32]byte, deterministicErrors []error) ([]types.EntityModification, error) {
	mods, err := planner.Plan(ctx, store, c)
	if err != nil {
		return nil, err
	}
	if len(mods) > len(c.BlockBuffer()) {
		cvErr := storeerr.NewConstraintViolation("planner produced more modifications than distinct keys touched")
		log.WithDeployment(string(c.Deployment())).Error().
			Err(cvErr).
			Int32("block_number", blockTo.Number).
			Msg("constraint violation: aborting commit without partial effect")
		return nil, cvErr
	}

	if err := store.TransactBlockOperations(ctx, c.Deployment(), blockTo, parentHash, mods, deterministicErrors); err != nil {
		return nil, err
	}
	c.ClearBlockBuffer()

	bus.Publish(events.NewStoreEvent(0, mods))
	return mods, nil
}

// RevertBlockOperations rolls store back to blockTo and publishes the
// inverse of mods (the modifications the reverted block had applied):
// Insert/Overwrite become Removed, Remove becomes Set, since reverting
// those keys' visible state flips without needing their prior data.
// currentHash must be the hash of the block being reverted away from.
func RevertBlockOperations(ctx context.Context, deployment types.DeploymentID, store entitystore.Store, bus *events.Bus, blockTo types.BlockPointer, currentHash [32]byte, mods []types.EntityModification) error {
	if err := store.RevertBlockOperations(ctx, deployment, blockTo, currentHash); err != nil {
		return err
	}
	bus.Publish(invertEvent(mods))
	return nil
}

func invertEvent(mods []types.EntityModification) *events.StoreEvent {
	changes := make(map[events.EntityChange]struct{}, len(mods))
	for _, m := range mods {
		kind := events.ChangeRemoved
		if m.Kind == types.ModRemove {
			kind = events.ChangeSet
		}
		changes[events.EntityChange{
			Deployment: m.Key.Deployment,
			EntityType: m.Key.Type,
			EntityID:   m.Key.ID,
			Kind:       kind,
		}] = struct{}{}
	}
	return &events.StoreEvent{Changes: changes}
}
