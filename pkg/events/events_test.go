package events

import (
	"testing"
	"time"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

func mod(kind types.ModKind, dep types.DeploymentID, typeName, id string) types.EntityModification {
	return types.EntityModification{
		Kind: kind,
		Key:  types.EntityKey{Deployment: dep, Type: types.DataType(typeName), ID: id},
	}
}

func TestBus_FiltersByDeploymentAndType(t *testing.T) {
	b := NewBus()
	b.Start()
	defer b.Stop()

	subA := b.Subscribe([]SubscriptionFilter{{Deployment: "dep1", EntityType: types.DataType("Account")}})
	defer b.Unsubscribe(subA)
	subB := b.Subscribe([]SubscriptionFilter{{Deployment: "dep2", EntityType: types.DataType("Account")}})
	defer b.Unsubscribe(subB)

	event := NewStoreEvent(0, []types.EntityModification{mod(types.ModInsert, "dep1", "Account", "1")})
	b.Publish(event)

	select {
	case got := <-subA:
		if !got.Equal(event) {
			t.Errorf("subA got %v, want %v", got, event)
		}
	case <-time.After(time.Second):
		t.Fatal("subA did not receive matching event")
	}

	select {
	case got := <-subB:
		t.Fatalf("subB should not have received a non-matching event, got %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreEvent_EqualIgnoresTag(t *testing.T) {
	a := NewStoreEvent(1, []types.EntityModification{mod(types.ModInsert, "dep1", "Account", "1")})
	b := NewStoreEvent(2, []types.EntityModification{mod(types.ModInsert, "dep1", "Account", "1")})
	if !a.Equal(b) {
		t.Errorf("expected events with equal changes to be Equal regardless of tag")
	}
}

func TestStoreEvent_ExtendUnionsChanges(t *testing.T) {
	a := NewStoreEvent(1, []types.EntityModification{mod(types.ModInsert, "dep1", "Account", "1")})
	b := NewStoreEvent(2, []types.EntityModification{mod(types.ModRemove, "dep1", "Account", "2")})
	merged := a.Extend(b)
	if len(merged.Changes) != 2 {
		t.Errorf("expected 2 changes after extend, got %d", len(merged.Changes))
	}
	if merged.Tag != 2 {
		t.Errorf("expected merged tag to be the later of the two, got %d", merged.Tag)
	}
}

func TestChangeFromModification_RemoveYieldsRemoved(t *testing.T) {
	c := ChangeFromModification(mod(types.ModRemove, "dep1", "Account", "1"))
	if c.Kind != ChangeRemoved {
		t.Errorf("expected Removed, got %v", c.Kind)
	}
	c = ChangeFromModification(mod(types.ModOverwrite, "dep1", "Account", "1"))
	if c.Kind != ChangeSet {
		t.Errorf("expected Set for Overwrite, got %v", c.Kind)
	}
}
