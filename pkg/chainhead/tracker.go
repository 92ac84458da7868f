package chainhead

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ledgerstore/ledgerstore/pkg/blockstore"
	"github.com/ledgerstore/ledgerstore/pkg/log"
	"github.com/ledgerstore/ledgerstore/pkg/storeerr"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// HeadUpdate is published whenever AttemptChainHeadUpdate moves the
// head.
type HeadUpdate struct {
	Deployment types.DeploymentID
	Network    string
	Ptr        types.BlockPointer
}

const headSubscriberBuffer = 8

// Tracker owns the current head pointer for one (deployment, network)
// pair and the ancestry walks over pkg/blockstore needed to maintain
// it.
type Tracker struct {
	store      blockstore.Store
	deployment types.DeploymentID
	network    string
	logger     zerolog.Logger

	mu   sync.RWMutex
	head types.BlockPointer
	set  bool

	subMu sync.Mutex
	subs  map[chan HeadUpdate]struct{}
}

// NewTracker creates a Tracker for deployment/network, persisting
// through store. The head starts unset until the first successful
// AttemptChainHeadUpdate.
func NewTracker(store blockstore.Store, deployment types.DeploymentID, network string) *Tracker {
	return &Tracker{
		store:      store,
		deployment: deployment,
		network:    network,
		logger:     log.WithComponent("chainhead"),
		subs:       make(map[chan HeadUpdate]struct{}),
	}
}

// HeadPtr returns the current head pointer, or (zero, false) if no
// head has ever been set.
func (t *Tracker) HeadPtr() (types.BlockPointer, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.head, t.set
}

// Subscribe returns a channel of HeadUpdates. Callers must drain it or
// call Unsubscribe to avoid leaking the internal buffer.
func (t *Tracker) Subscribe() chan HeadUpdate {
	ch := make(chan HeadUpdate, headSubscriberBuffer)
	t.subMu.Lock()
	t.subs[ch] = struct{}{}
	t.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes ch.
func (t *Tracker) Unsubscribe(ch chan HeadUpdate) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	if _, ok := t.subs[ch]; ok {
		delete(t.subs, ch)
		close(ch)
	}
}

func (t *Tracker) publish(update HeadUpdate) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for ch := range t.subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// AttemptChainHeadUpdate finds the maximum-
// number block C in the store, walks its parent chain back
// ancestorCount steps, and advances the head to C only if that prefix
// is fully resident. On success it returns an empty slice; otherwise
// it returns the missing hashes encountered (at least one) and leaves
// the head unchanged.
func (t *Tracker) AttemptChainHeadUpdate(ctx context.Context, ancestorCount int) ([][32]byte, error) {
	maxNum, ok, err := t.store.MaxNumber(ctx, t.deployment, t.network)
	if err != nil {
		t.logger.Error().Err(err).Str("deployment", string(t.deployment)).Str("network", t.network).
			Msg("failed to read max known block number")
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	t.mu.RLock()
	currentHead, haveHead := t.head, t.set
	t.mu.RUnlock()
	if haveHead && maxNum <= currentHead.Number {
		return nil, nil
	}

	candidates, err := t.store.BlocksByNumber(ctx, t.deployment, t.network, maxNum)
	if err != nil {
		t.logger.Error().Err(err).Str("deployment", string(t.deployment)).Str("network", t.network).
			Msg("failed to list candidate blocks at max number")
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	candidate := pickGreatestHash(candidates)

	cur := candidate
	for step := 0; step < ancestorCount; step++ {
		if cur.IsGenesis {
			break
		}
		parent, found, err := t.store.BlockByHash(ctx, t.deployment, t.network, cur.ParentHash)
		if err != nil {
			t.logger.Error().Err(err).Str("deployment", string(t.deployment)).Str("network", t.network).
				Msg("failed to walk parent chain")
			return nil, err
		}
		if !found {
			log.WithBlock(candidate.Ptr.Number, hex.EncodeToString(candidate.Ptr.Hash[:])).Warn().
				Str("deployment", string(t.deployment)).
				Str("missing_parent_hash", hex.EncodeToString(cur.ParentHash[:])).
				Msg("chain head update cannot advance: ancestor missing from local store")
			return [][32]byte{cur.ParentHash}, nil
		}
		cur = parent
	}

	t.mu.Lock()
	t.head = candidate.Ptr
	t.set = true
	t.mu.Unlock()

	t.logger.Info().Str("deployment", string(t.deployment)).Str("network", t.network).
		Int32("block_number", candidate.Ptr.Number).Msg("chain head advanced")
	t.publish(HeadUpdate{Deployment: t.deployment, Network: t.network, Ptr: candidate.Ptr})
	return nil, nil
}

// pickGreatestHash breaks ties among same-height candidates by
// lexicographically greatest hash.
func pickGreatestHash(candidates []blockstore.Block) blockstore.Block {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if bytes.Compare(c.Ptr.Hash[:], best.Ptr.Hash[:]) > 0 {
			best = c
		}
	}
	return best
}

// AncestorBlock walks parent links starting at blockPtr for offset
// steps. It returns (ptr, false, nil) if a parent is missing before
// reaching genesis, and a non-nil error if the walk would have to
// cross the genesis boundary.
func (t *Tracker) AncestorBlock(ctx context.Context, blockPtr types.BlockPointer, offset uint32) (types.BlockPointer, bool, error) {
	cur, found, err := t.store.BlockByHash(ctx, t.deployment, t.network, blockPtr.Hash)
	if err != nil {
		return types.BlockPointer{}, false, err
	}
	if !found {
		return types.BlockPointer{}, false, nil
	}

	for step := uint32(0); step < offset; step++ {
		if cur.IsGenesis {
			return types.BlockPointer{}, false, storeerr.NewQueryExecutionError("ancestor_block: offset exceeds chain depth from block_ptr")
		}
		parent, found, err := t.store.BlockByHash(ctx, t.deployment, t.network, cur.ParentHash)
		if err != nil {
			return types.BlockPointer{}, false, err
		}
		if !found {
			return types.BlockPointer{}, false, nil
		}
		cur = parent
	}
	return cur.Ptr, true, nil
}

// BlockHashesByBlockNumber returns every known hash at height n.
func (t *Tracker) BlockHashesByBlockNumber(ctx context.Context, n int32) ([][32]byte, error) {
	blocks, err := t.store.BlocksByNumber(ctx, t.deployment, t.network, n)
	if err != nil {
		return nil, err
	}
	hashes := make([][32]byte, len(blocks))
	for i, b := range blocks {
		hashes[i] = b.Ptr.Hash
	}
	return hashes, nil
}

// ConfirmBlockHash deletes every block at height n whose hash differs
// from h and returns the count deleted. If no block at n has hash h
// (the canonical hash is itself unknown), nothing is deleted and the
// count is 0 — confirming a hash that was never seen must not wipe out
// every fork at that height.
func (t *Tracker) ConfirmBlockHash(ctx context.Context, n int32, h [32]byte) (int, error) {
	blocks, err := t.store.BlocksByNumber(ctx, t.deployment, t.network, n)
	if err != nil {
		return 0, err
	}
	canonicalPresent := false
	var toDelete [][32]byte
	for _, b := range blocks {
		if b.Ptr.Hash == h {
			canonicalPresent = true
			continue
		}
		toDelete = append(toDelete, b.Ptr.Hash)
	}
	if !canonicalPresent || len(toDelete) == 0 {
		return 0, nil
	}
	return t.store.DeleteBlocks(ctx, t.deployment, t.network, toDelete)
}

// CleanupCachedBlocks removes blocks whose number is more than
// ancestorCount below the current head, returning the oldest retained
// number and the count deleted.
func (t *Tracker) CleanupCachedBlocks(ctx context.Context, ancestorCount int32) (int32, int, error) {
	t.mu.RLock()
	head, haveHead := t.head, t.set
	t.mu.RUnlock()
	if !haveHead {
		return 0, 0, nil
	}
	cutoff := head.Number - ancestorCount
	if cutoff < 0 {
		cutoff = 0
	}
	deleted, err := t.store.DeleteBlocksBelow(ctx, t.deployment, t.network, cutoff)
	if err != nil {
		return 0, 0, err
	}
	return cutoff, deleted, nil
}
