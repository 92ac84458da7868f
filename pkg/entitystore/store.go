package entitystore

import (
	"context"

	"github.com/ledgerstore/ledgerstore/pkg/query"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// Reader is the read-side capability the entity cache needs: point
// lookup, batched multi-get grouped by entity type, and query
// execution. This is the only interface the cache's read-through path
// depends on.
type Reader interface {
	// Get returns the entity at key, or (nil, false) if it does not
	// exist. Errors are opaque backing-store failures.
	Get(ctx context.Context, key types.EntityKey) (types.Entity, bool, error)

	// GetMany batches point lookups by entity type: for each type, the
	// caller supplies the ids it wants and receives back the entities
	// found (absent ids are simply missing from the result slice).
	GetMany(ctx context.Context, deployment types.DeploymentID, ids map[types.EntityType][]string) (map[types.EntityType][]types.Entity, error)

	Find(ctx context.Context, q query.Query) ([]types.Entity, error)
	FindOne(ctx context.Context, q query.Query) (types.Entity, bool, error)
}

// Writer is the write-side capability the composed write path (package
// writepath) depends on.
type Writer interface {
	// TransactBlockOperations atomically applies mods, advances the
	// deployment's block pointer to blockTo, and records
	// deterministicErrors. parentHash must equal the hash of the
	// deployment's current pointer (the precondition is waived the
	// first time a deployment is written, since there is no current
	// pointer yet); a mismatch is a ConstraintViolation and leaves the
	// store unchanged.
	TransactBlockOperations(ctx context.Context, deployment types.DeploymentID, blockTo types.BlockPointer, parentHash [32]byte, mods []types.EntityModification, deterministicErrors []error) error

	// RevertBlockOperations atomically rolls the deployment's current
	// pointer back to blockTo. currentHash must equal the hash of the
	// deployment's current pointer before the revert; a mismatch is a
	// ConstraintViolation and leaves the store unchanged.
	RevertBlockOperations(ctx context.Context, deployment types.DeploymentID, blockTo types.BlockPointer, currentHash [32]byte) error

	// BlockPtr returns the deployment's current block pointer, or
	// (zero, false) if the deployment has never been written to.
	BlockPtr(ctx context.Context, deployment types.DeploymentID) (types.BlockPointer, bool, error)
}

// Store is the combined capability interface; BoltStore is the one
// concrete implementation this repository provides.
type Store interface {
	Reader
	Writer
	Close() error
}
