package query

import "github.com/ledgerstore/ledgerstore/pkg/types"

// FilterOp enumerates the closed set of filter terms: boolean
// composition, attribute comparators, set membership, and substring
// containment (plus their negations).
type FilterOp int

const (
	FilterAnd FilterOp = iota
	FilterOr
	FilterEqual
	FilterNot
	FilterGreater
	FilterLess
	FilterGe
	FilterLe
	FilterIn
	FilterNotIn
	FilterContains
	FilterNotContains
	FilterStartsWith
	FilterNotStartsWith
	FilterEndsWith
	FilterNotEndsWith
)

// Filter is a recursive algebraic term over entity attributes. And/Or
// carry Children; the comparators carry Attr and either Value or
// Values.
type Filter struct {
	Op       FilterOp
	Attr     string
	Value    types.Value
	Values   []types.Value
	Children []Filter
}

func And(children ...Filter) Filter  { return Filter{Op: FilterAnd, Children: children} }
func Or(children ...Filter) Filter   { return Filter{Op: FilterOr, Children: children} }
func Equal(attr string, v types.Value) Filter { return Filter{Op: FilterEqual, Attr: attr, Value: v} }
func Not(attr string, v types.Value) Filter   { return Filter{Op: FilterNot, Attr: attr, Value: v} }
func Greater(attr string, v types.Value) Filter {
	return Filter{Op: FilterGreater, Attr: attr, Value: v}
}
func Less(attr string, v types.Value) Filter { return Filter{Op: FilterLess, Attr: attr, Value: v} }
func Ge(attr string, v types.Value) Filter   { return Filter{Op: FilterGe, Attr: attr, Value: v} }
func Le(attr string, v types.Value) Filter   { return Filter{Op: FilterLe, Attr: attr, Value: v} }
func In(attr string, vs []types.Value) Filter {
	return Filter{Op: FilterIn, Attr: attr, Values: vs}
}
func NotIn(attr string, vs []types.Value) Filter {
	return Filter{Op: FilterNotIn, Attr: attr, Values: vs}
}
func Contains(attr string, v types.Value) Filter {
	return Filter{Op: FilterContains, Attr: attr, Value: v}
}
func NotContains(attr string, v types.Value) Filter {
	return Filter{Op: FilterNotContains, Attr: attr, Value: v}
}
func StartsWith(attr string, v types.Value) Filter {
	return Filter{Op: FilterStartsWith, Attr: attr, Value: v}
}
func NotStartsWith(attr string, v types.Value) Filter {
	return Filter{Op: FilterNotStartsWith, Attr: attr, Value: v}
}
func EndsWith(attr string, v types.Value) Filter {
	return Filter{Op: FilterEndsWith, Attr: attr, Value: v}
}
func NotEndsWith(attr string, v types.Value) Filter {
	return Filter{Op: FilterNotEndsWith, Attr: attr, Value: v}
}

// IsZero reports whether f is the zero Filter, i.e. "no filter".
func (f Filter) IsZero() bool {
	return f.Op == FilterAnd && f.Attr == "" && len(f.Children) == 0 && f.Value == nil && f.Values == nil
}

// AndMaybe combines existing with next, flattening nested Ands so
// repeated simplification passes never build up a deep filter tree. A
// zero-value existing filter is treated as "no filter yet".
func AndMaybe(existing, next Filter) Filter {
	if existing.IsZero() {
		return next
	}
	children := make([]Filter, 0, len(existing.Children)+1)
	if existing.Op == FilterAnd {
		children = append(children, existing.Children...)
	} else {
		children = append(children, existing)
	}
	if next.Op == FilterAnd {
		children = append(children, next.Children...)
	} else {
		children = append(children, next)
	}
	return And(children...)
}

// OrderDir enumerates the four EntityOrder variants.
type OrderDir int

const (
	OrderDefault OrderDir = iota
	OrderUnordered
	OrderAscending
	OrderDescending
)

// Order is Ascending(attr,type) | Descending(attr,type) | Default (by
// id ascending) | Unordered. AttrType only matters to a backing store's
// comparison/coercion logic and is opaque to this package.
type Order struct {
	Dir      OrderDir
	Attr     string
	AttrType string
}

var DefaultOrder = Order{Dir: OrderDefault}
var Unordered = Order{Dir: OrderUnordered}

func Ascending(attr, attrType string) Order {
	return Order{Dir: OrderAscending, Attr: attr, AttrType: attrType}
}

func Descending(attr, attrType string) Order {
	return Order{Dir: OrderDescending, Attr: attr, AttrType: attrType}
}

// Range is (first, skip); a zero Range must be defaulted by callers to
// Range{First: 100} before use (see DefaultRange).
type Range struct {
	First *uint32
	Skip  uint32
}

// DefaultRange returns the default range: first=100, skip=0.
func DefaultRange() Range {
	first := uint32(100)
	return Range{First: &first, Skip: 0}
}

// CollectionKind enumerates the two EntityCollection variants.
type CollectionKind int

const (
	CollectionAll CollectionKind = iota
	CollectionWindow
)

// LinkKind enumerates the EntityLink variants.
type LinkKind int

const (
	LinkDirect LinkKind = iota
	LinkParentScalar
	LinkParentList
)

// Multiplicity describes whether a Direct link's window attribute
// holds a single parent id (scalar) or a list of them.
type Multiplicity int

const (
	Single Multiplicity = iota
	Many
)

// Link is Direct(attr, multiplicity) — the child stores the parent id
// in attr — or Parent(ParentLink) — the parent stores child references,
// either one child per parent (LinkParentScalar) or many per parent
// (LinkParentList).
type Link struct {
	Kind         LinkKind
	Attr         string       // Direct: the child attribute holding the parent id
	Multiplicity Multiplicity // Direct only
	ParentAttr   string       // Parent*: the parent attribute holding child ids
}

func DirectLink(attr string, m Multiplicity) Link {
	return Link{Kind: LinkDirect, Attr: attr, Multiplicity: m}
}

func ParentScalarLink(attr string) Link { return Link{Kind: LinkParentScalar, ParentAttr: attr} }
func ParentListLink(attr string) Link   { return Link{Kind: LinkParentList, ParentAttr: attr} }

// Window is a per-parent sub-query: fetch children of ChildType linked
// to ParentIDs via Link, with order and limits applied independently
// per parent. For a Parent-side link, Link carries only the name of
// the parent attribute holding child ids; it holds no per-parent list
// of child references.
type Window struct {
	ChildType string
	ParentIDs []string
	Link      Link
}

// Collection is All(types) or Window(windows).
type Collection struct {
	Kind    CollectionKind
	Types   []string
	Windows []Window
}

func All(types ...string) Collection { return Collection{Kind: CollectionAll, Types: types} }
func Windows(windows ...Window) Collection {
	return Collection{Kind: CollectionWindow, Windows: windows}
}

// Query is (deployment, block, collection, filter?, order, range,
// query id?).
type Query struct {
	Deployment types.DeploymentID
	Block      int32
	Collection Collection
	Filter     Filter
	Order      Order
	Range      Range
	QueryID    string
}

// Simplify performs the rewrite required before dispatch: a Window
// collection containing exactly one window with exactly one
// parent id and a Direct link is equivalent to an All query over the
// child type with an extra filter conjunct anded onto any existing
// filter — Equal(attr,id) for a scalar link, Contains(attr,[id]) for a
// list link. Any other Window shape (more than one window, more than
// one parent id, or a Parent-side link) is returned unchanged: the
// backing store handles genuine per-parent windowing itself.
func Simplify(q Query) Query {
	if q.Collection.Kind != CollectionWindow || len(q.Collection.Windows) != 1 {
		return q
	}
	w := q.Collection.Windows[0]
	if len(w.ParentIDs) != 1 || w.Link.Kind != LinkDirect {
		return q
	}
	id := w.ParentIDs[0]
	var conjunct Filter
	if w.Link.Multiplicity == Single {
		conjunct = Equal(w.Link.Attr, types.StringVal(id))
	} else {
		conjunct = Contains(w.Link.Attr, types.ListVal{types.StringVal(id)})
	}
	q.Collection = All(w.ChildType)
	q.Filter = AndMaybe(q.Filter, conjunct)
	return q
}
