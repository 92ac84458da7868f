package query

import (
	"testing"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

func TestSimplify_SingleParentDirectLink(t *testing.T) {
	q := Query{
		Collection: Windows(Window{
			ChildType: "T",
			ParentIDs: []string{"p1"},
			Link:      DirectLink("parent", Single),
		}),
		Filter: Equal("x", types.IntVal(1)),
	}

	got := Simplify(q)

	if got.Collection.Kind != CollectionAll {
		t.Fatalf("expected All collection after simplification, got %v", got.Collection.Kind)
	}
	if len(got.Collection.Types) != 1 || got.Collection.Types[0] != "T" {
		t.Fatalf("expected All([T]), got %v", got.Collection.Types)
	}
	if got.Filter.Op != FilterAnd || len(got.Filter.Children) != 2 {
		t.Fatalf("expected a 2-child And, got %+v", got.Filter)
	}
	wantAttrs := map[string]bool{"parent": false, "x": false}
	for _, c := range got.Filter.Children {
		if c.Op != FilterEqual {
			t.Errorf("expected both conjuncts to be Equal, got %v", c.Op)
		}
		if _, ok := wantAttrs[c.Attr]; !ok {
			t.Errorf("unexpected conjunct attribute %q", c.Attr)
		}
		wantAttrs[c.Attr] = true
	}
	for attr, seen := range wantAttrs {
		if !seen {
			t.Errorf("missing conjunct on attribute %q", attr)
		}
	}
}

func TestSimplify_ListLinkUsesContains(t *testing.T) {
	q := Query{
		Collection: Windows(Window{
			ChildType: "T",
			ParentIDs: []string{"p1"},
			Link:      DirectLink("parents", Many),
		}),
	}
	got := Simplify(q)
	if got.Filter.Op != FilterContains {
		t.Fatalf("expected Contains conjunct for list link, got %v", got.Filter.Op)
	}
	list, ok := got.Filter.Value.(types.ListVal)
	if !ok || len(list) != 1 || !list[0].Equal(types.StringVal("p1")) {
		t.Errorf("expected Contains(parents, [p1]), got %v", got.Filter.Value)
	}
}

func TestSimplify_MultiParentWindowUnchanged(t *testing.T) {
	q := Query{
		Collection: Windows(Window{
			ChildType: "T",
			ParentIDs: []string{"p1", "p2"},
			Link:      DirectLink("parent", Single),
		}),
	}
	got := Simplify(q)
	if got.Collection.Kind != CollectionWindow {
		t.Errorf("multi-parent window must not be rewritten to All")
	}
}

func TestSimplify_ParentLinkUnchanged(t *testing.T) {
	q := Query{
		Collection: Windows(Window{
			ChildType: "T",
			ParentIDs: []string{"p1"},
			Link:      ParentScalarLink("child"),
		}),
	}
	got := Simplify(q)
	if got.Collection.Kind != CollectionWindow {
		t.Errorf("a Parent-side link must not be rewritten to All")
	}
}

func TestAndMaybe_FlattensNestedAnds(t *testing.T) {
	a := Equal("a", types.IntVal(1))
	b := Equal("b", types.IntVal(2))
	c := Equal("c", types.IntVal(3))

	first := AndMaybe(Filter{}, a)
	second := AndMaybe(first, b)
	third := AndMaybe(second, c)

	if third.Op != FilterAnd || len(third.Children) != 3 {
		t.Fatalf("expected a flat 3-child And, got %+v", third)
	}
	for _, child := range third.Children {
		if child.Op == FilterAnd {
			t.Errorf("AndMaybe must flatten nested Ands, found one: %+v", child)
		}
	}
}
