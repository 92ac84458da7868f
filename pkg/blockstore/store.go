package blockstore

import (
	"context"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// Block is one node of the ancestry graph: a block pointer plus its
// parent's hash. Genesis blocks set IsGenesis and leave ParentHash
// zeroed.
type Block struct {
	Ptr        types.BlockPointer
	ParentHash [32]byte
	IsGenesis  bool
}

// Store is the persistence capability the Chain Head Tracker depends
// on. BoltStore is the one concrete implementation this repository
// provides.
type Store interface {
	// UpsertBlocks inserts or replaces blocks for (deployment,
	// network), keyed by hash.
	UpsertBlocks(ctx context.Context, deployment types.DeploymentID, network string, blocks []Block) error

	// BlockByHash returns the block with the given hash, or
	// (zero, false) if not known.
	BlockByHash(ctx context.Context, deployment types.DeploymentID, network string, hash [32]byte) (Block, bool, error)

	// BlocksByNumber returns every known block at height number
	// (there may be more than one during a fork).
	BlocksByNumber(ctx context.Context, deployment types.DeploymentID, network string, number int32) ([]Block, error)

	// MaxNumber returns the highest block number known for
	// (deployment, network), or (0, false) if the store is empty.
	MaxNumber(ctx context.Context, deployment types.DeploymentID, network string) (int32, bool, error)

	// DeleteBlocks removes the given hashes and returns how many
	// existed.
	DeleteBlocks(ctx context.Context, deployment types.DeploymentID, network string, hashes [][32]byte) (int, error)

	// DeleteBlocksBelow removes every block with number < cutoff and
	// returns how many were deleted.
	DeleteBlocksBelow(ctx context.Context, deployment types.DeploymentID, network string, cutoff int32) (int, error)

	Close() error
}
