package planner

import (
	"context"
	"testing"

	"github.com/ledgerstore/ledgerstore/pkg/cache"
	"github.com/ledgerstore/ledgerstore/pkg/query"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

type fakeStore struct {
	entities map[types.EntityKey]types.Entity
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: make(map[types.EntityKey]types.Entity)}
}

func (f *fakeStore) Get(ctx context.Context, key types.EntityKey) (types.Entity, bool, error) {
	e, ok := f.entities[key]
	if !ok {
		return nil, false, nil
	}
	return e.Clone(), true, nil
}

func (f *fakeStore) GetMany(ctx context.Context, deployment types.DeploymentID, ids map[types.EntityType][]string) (map[types.EntityType][]types.Entity, error) {
	out := make(map[types.EntityType][]types.Entity)
	for entityType, wantIDs := range ids {
		for _, id := range wantIDs {
			key := types.EntityKey{Deployment: deployment, Type: entityType, ID: id}
			if e, ok := f.entities[key]; ok {
				out[entityType] = append(out[entityType], e.Clone())
			}
		}
	}
	return out, nil
}

func (f *fakeStore) Find(ctx context.Context, q query.Query) ([]types.Entity, error) {
	return nil, nil
}

func (f *fakeStore) FindOne(ctx context.Context, q query.Query) (types.Entity, bool, error) {
	return nil, false, nil
}

func key(id string) types.EntityKey {
	return types.EntityKey{Deployment: "dep1", Type: types.DataType("Account"), ID: id}
}

// TestPlan_AccumulationScenario_SomeSnapshot: with snapshot = {a:0},
// the handler's set/set/remove/set sequence accumulates to
// Overwrite({a:9}), and against a present snapshot that resolves to
// an Overwrite modification.
func TestPlan_AccumulationScenario_SomeSnapshot(t *testing.T) {
	store := newFakeStore()
	k := key("k1")
	store.entities[k] = types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(0)}

	c := cache.New(store, "dep1", 0)
	c.EnterHandler()
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(1), "b": types.IntVal(2)})
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "b": types.IntVal(3), "c": types.Null})
	c.Remove(k)
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(9)})
	c.ExitHandler()

	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected exactly one modification, got %d: %v", len(mods), mods)
	}
	m := mods[0]
	if m.Kind != types.ModOverwrite {
		t.Errorf("expected Overwrite, got %v", m.Kind)
	}
	want := types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(9)}
	if !m.Data.Equal(want) {
		t.Errorf("got %v, want %v", m.Data, want)
	}
}

// TestPlan_AccumulationScenario_NoneSnapshot is the same sequence over
// an absent snapshot: the table resolves to Insert.
func TestPlan_AccumulationScenario_NoneSnapshot(t *testing.T) {
	store := newFakeStore()
	k := key("k1")

	c := cache.New(store, "dep1", 0)
	c.EnterHandler()
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(1), "b": types.IntVal(2)})
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "b": types.IntVal(3), "c": types.Null})
	c.Remove(k)
	c.Set(k, types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(9)})
	c.ExitHandler()

	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(mods) != 1 {
		t.Fatalf("expected exactly one modification, got %d: %v", len(mods), mods)
	}
	m := mods[0]
	if m.Kind != types.ModInsert {
		t.Errorf("expected Insert, got %v", m.Kind)
	}
	want := types.Entity{"id": types.StringVal("k1"), "a": types.IntVal(9)}
	if !m.Data.Equal(want) {
		t.Errorf("got %v, want %v", m.Data, want)
	}
}

// TestPlan_NoOpUpdate: snapshot {a:1}, handler sets {a:1} — zero
// modifications.
func TestPlan_NoOpUpdate(t *testing.T) {
	store := newFakeStore()
	k := key("k2")
	store.entities[k] = types.Entity{"id": types.StringVal("k2"), "a": types.IntVal(1)}

	c := cache.New(store, "dep1", 0)
	c.EnterHandler()
	c.Set(k, types.Entity{"id": types.StringVal("k2"), "a": types.IntVal(1)})
	c.ExitHandler()

	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(mods) != 0 {
		t.Errorf("expected zero modifications, got %d: %v", len(mods), mods)
	}
}

func TestPlan_RemoveOfAbsentKeyEmitsNothing(t *testing.T) {
	store := newFakeStore()
	k := key("k3")

	c := cache.New(store, "dep1", 0)
	c.EnterHandler()
	c.Remove(k)
	c.ExitHandler()

	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(mods) != 0 {
		t.Errorf("expected zero modifications for removing an absent key, got %d", len(mods))
	}
}

// TestPlan_NeverEmitsTwoModsForSameKey exercises the planner invariant
// directly: a buffer can only hold one accumulated op per key by
// construction (cache.recordOp always accumulates), so Plan can only
// ever emit at most one modification per key.
func TestPlan_NeverEmitsTwoModsForSameKey(t *testing.T) {
	store := newFakeStore()
	k := key("k4")

	c := cache.New(store, "dep1", 0)
	c.EnterHandler()
	c.Set(k, types.Entity{"id": types.StringVal("k4"), "a": types.IntVal(1)})
	c.Set(k, types.Entity{"id": types.StringVal("k4"), "a": types.IntVal(2)})
	c.ExitHandler()

	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	seen := make(map[types.EntityKey]bool)
	for _, m := range mods {
		if seen[m.Key] {
			t.Fatalf("key %v modified twice", m.Key)
		}
		seen[m.Key] = true
	}
}

// TestPlan_SecondPassIsNoOp verifies the snapshot write-back: after a
// plan's modifications are committed and the block buffer cleared,
// re-recording the same value and planning again must emit nothing.
func TestPlan_SecondPassIsNoOp(t *testing.T) {
	store := newFakeStore()
	k := key("k5")

	c := cache.New(store, "dep1", 0)
	c.Set(k, types.Entity{"id": types.StringVal("k5"), "a": types.IntVal(1)})

	if _, err := Plan(context.Background(), store, c); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	c.ClearBlockBuffer()

	c.Set(k, types.Entity{"id": types.StringVal("k5"), "a": types.IntVal(1)})
	mods, err := Plan(context.Background(), store, c)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(mods) != 0 {
		t.Errorf("expected second plan over an unchanged key to be a no-op, got %d mods", len(mods))
	}
}
