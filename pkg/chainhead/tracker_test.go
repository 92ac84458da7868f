package chainhead

import (
	"context"
	"testing"

	"github.com/ledgerstore/ledgerstore/pkg/blockstore"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

type fakeBlockStore struct {
	blocks map[[32]byte]blockstore.Block
}

func newFakeBlockStore() *fakeBlockStore {
	return &fakeBlockStore{blocks: make(map[[32]byte]blockstore.Block)}
}

func (f *fakeBlockStore) UpsertBlocks(ctx context.Context, deployment types.DeploymentID, network string, blocks []blockstore.Block) error {
	for _, b := range blocks {
		f.blocks[b.Ptr.Hash] = b
	}
	return nil
}

func (f *fakeBlockStore) BlockByHash(ctx context.Context, deployment types.DeploymentID, network string, hash [32]byte) (blockstore.Block, bool, error) {
	b, ok := f.blocks[hash]
	return b, ok, nil
}

func (f *fakeBlockStore) BlocksByNumber(ctx context.Context, deployment types.DeploymentID, network string, number int32) ([]blockstore.Block, error) {
	var out []blockstore.Block
	for _, b := range f.blocks {
		if b.Ptr.Number == number {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBlockStore) MaxNumber(ctx context.Context, deployment types.DeploymentID, network string) (int32, bool, error) {
	found := false
	var max int32
	for _, b := range f.blocks {
		if !found || b.Ptr.Number > max {
			max = b.Ptr.Number
			found = true
		}
	}
	return max, found, nil
}

func (f *fakeBlockStore) DeleteBlocks(ctx context.Context, deployment types.DeploymentID, network string, hashes [][32]byte) (int, error) {
	count := 0
	for _, h := range hashes {
		if _, ok := f.blocks[h]; ok {
			count++
			delete(f.blocks, h)
		}
	}
	return count, nil
}

func (f *fakeBlockStore) DeleteBlocksBelow(ctx context.Context, deployment types.DeploymentID, network string, cutoff int32) (int, error) {
	count := 0
	for h, b := range f.blocks {
		if b.Ptr.Number < cutoff {
			delete(f.blocks, h)
			count++
		}
	}
	return count, nil
}

func (f *fakeBlockStore) Close() error { return nil }

func hashOf(label byte) [32]byte {
	var h [32]byte
	h[0] = label
	return h
}

func blockAt(number int32, hashLabel, parentLabel byte, genesis bool) blockstore.Block {
	return blockstore.Block{
		Ptr:        types.BlockPointer{Number: number, Hash: hashOf(hashLabel)},
		ParentHash: hashOf(parentLabel),
		IsGenesis:  genesis,
	}
}

// A block whose ancestor is missing within the required depth must
// stop the update and report the missing hash without moving the head.
func TestAttemptChainHeadUpdate_MissingAncestor(t *testing.T) {
	store := newFakeBlockStore()
	three := blockAt(3, 3, 2, false) // parent (hash=2, i.e. BLOCK_TWO) absent
	four := blockAt(4, 4, 3, false)
	five := blockAt(5, 5, 4, false)
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{three, four, five})

	tr := NewTracker(store, "dep1", "mainnet")
	missing, err := tr.AttemptChainHeadUpdate(context.Background(), 3)
	if err != nil {
		t.Fatalf("AttemptChainHeadUpdate: %v", err)
	}
	if len(missing) != 1 || missing[0] != hashOf(2) {
		t.Fatalf("expected missing=[hash(2)], got %v", missing)
	}
	if _, ok := tr.HeadPtr(); ok {
		t.Errorf("head should remain unset after a failed update")
	}
}

// A missing ancestor beyond the required walk depth must not block
// the head update — only gaps within the horizon matter.
func TestAttemptChainHeadUpdate_MissingBeyondHorizon(t *testing.T) {
	store := newFakeBlockStore()
	two := blockAt(2, 2, 1, false) // parent (hash=1, BLOCK_ONE) absent, but beyond the 3-step horizon
	three := blockAt(3, 3, 2, false)
	four := blockAt(4, 4, 3, false)
	five := blockAt(5, 5, 4, false)
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{two, three, four, five})

	tr := NewTracker(store, "dep1", "mainnet")
	missing, err := tr.AttemptChainHeadUpdate(context.Background(), 3)
	if err != nil {
		t.Fatalf("AttemptChainHeadUpdate: %v", err)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing hashes, got %v", missing)
	}
	head, ok := tr.HeadPtr()
	if !ok || head.Hash != hashOf(5) {
		t.Fatalf("expected head to become BLOCK_FIVE, got %v ok=%v", head, ok)
	}
}

func TestAttemptChainHeadUpdate_NeverRegresses(t *testing.T) {
	store := newFakeBlockStore()
	genesis := blockAt(0, 0, 0, true)
	one := blockAt(1, 1, 0, false)
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{genesis, one})

	tr := NewTracker(store, "dep1", "mainnet")
	if _, err := tr.AttemptChainHeadUpdate(context.Background(), 1); err != nil {
		t.Fatalf("AttemptChainHeadUpdate: %v", err)
	}
	head, _ := tr.HeadPtr()
	if head.Number != 1 {
		t.Fatalf("expected head number 1, got %d", head.Number)
	}

	// No new higher block arrives; a second attempt must be a no-op.
	missing, err := tr.AttemptChainHeadUpdate(context.Background(), 1)
	if err != nil {
		t.Fatalf("AttemptChainHeadUpdate: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no missing hashes on a no-op attempt, got %v", missing)
	}
	head2, _ := tr.HeadPtr()
	if head2.Number != 1 {
		t.Errorf("head regressed: %v", head2)
	}
}

// buildLinearChain builds a six-block linear chain: GENESIS, ONE, TWO,
// THREE, FOUR, FIVE.
func buildLinearChain(t *testing.T) (*fakeBlockStore, types.BlockPointer) {
	t.Helper()
	store := newFakeBlockStore()
	genesis := blockAt(0, 0, 0, true)
	one := blockAt(1, 1, 0, false)
	two := blockAt(2, 2, 1, false)
	three := blockAt(3, 3, 2, false)
	four := blockAt(4, 4, 3, false)
	five := blockAt(5, 5, 4, false)
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{genesis, one, two, three, four, five})
	return store, five.Ptr
}

func TestAncestorBlock_Scenario(t *testing.T) {
	store, fivePtr := buildLinearChain(t)
	tr := NewTracker(store, "dep1", "mainnet")

	ptr, found, err := tr.AncestorBlock(context.Background(), fivePtr, 5)
	if err != nil || !found {
		t.Fatalf("ancestor_block(FIVE,5): err=%v found=%v", err, found)
	}
	if ptr.Hash != hashOf(0) {
		t.Errorf("expected GENESIS, got %v", ptr)
	}

	_, found, err = tr.AncestorBlock(context.Background(), fivePtr, 6)
	if err == nil {
		t.Errorf("expected ancestor_block(FIVE,6) to fail past genesis")
	}
	if found {
		t.Errorf("expected found=false on past-genesis error")
	}

	// X's parent missing: build a standalone block with an absent parent.
	xHash := hashOf(9)
	x := blockstore.Block{Ptr: types.BlockPointer{Number: 1, Hash: xHash}, ParentHash: hashOf(200), IsGenesis: false}
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{x})
	ptr, found, err = tr.AncestorBlock(context.Background(), x.Ptr, 1)
	if err != nil {
		t.Fatalf("expected no error for a missing-parent walk, got %v", err)
	}
	if found {
		t.Errorf("expected found=false when X's parent is missing, got %v", ptr)
	}
}

func TestConfirmBlockHash_IdempotentAndSelective(t *testing.T) {
	store, _ := buildLinearChain(t)
	// introduce a fork at height 3
	fork := blockAt(3, 30, 2, false)
	_ = store.UpsertBlocks(context.Background(), "dep1", "mainnet", []blockstore.Block{fork})

	tr := NewTracker(store, "dep1", "mainnet")
	deleted, err := tr.ConfirmBlockHash(context.Background(), 3, hashOf(3))
	if err != nil {
		t.Fatalf("ConfirmBlockHash: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deletion (the fork), got %d", deleted)
	}

	deleted, err = tr.ConfirmBlockHash(context.Background(), 3, hashOf(3))
	if err != nil {
		t.Fatalf("ConfirmBlockHash (repeat): %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected idempotent repeat to delete 0, got %d", deleted)
	}
}

func TestConfirmBlockHash_UnknownCanonicalDeletesNothing(t *testing.T) {
	store, _ := buildLinearChain(t)
	tr := NewTracker(store, "dep1", "mainnet")

	deleted, err := tr.ConfirmBlockHash(context.Background(), 3, hashOf(99))
	if err != nil {
		t.Fatalf("ConfirmBlockHash: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 deletions when the canonical hash itself is unknown, got %d", deleted)
	}
}

func TestCleanupCachedBlocks(t *testing.T) {
	store, fivePtr := buildLinearChain(t)
	tr := NewTracker(store, "dep1", "mainnet")
	tr.head = fivePtr
	tr.set = true

	oldest, deleted, err := tr.CleanupCachedBlocks(context.Background(), 2)
	if err != nil {
		t.Fatalf("CleanupCachedBlocks: %v", err)
	}
	if oldest != 3 {
		t.Errorf("expected oldest retained number 3, got %d", oldest)
	}
	if deleted != 3 {
		t.Errorf("expected 3 blocks deleted (genesis, one, two), got %d", deleted)
	}
}
