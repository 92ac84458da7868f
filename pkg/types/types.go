package types

import (
	"fmt"
	"math/big"
	"sort"
)

// DeploymentID identifies one isolated indexing unit. All entity state,
// block pointers, and subscription filters are namespaced by it.
type DeploymentID string

// MetadataKind enumerates the fixed set of internal bookkeeping entity
// kinds. It is a closed union — new kinds are added by extending this
// list, never by accepting an arbitrary string, because the kind's
// string form is part of the stable-hash contract (package keys).
type MetadataKind int

const (
	SubgraphManifest MetadataKind = iota
	SubgraphDeployment
	SubgraphError
	EthereumContractDataSource
	EthereumContractDataSourceTemplate
	DynamicEthereumContractDataSource
	EthereumContractAbi
	EthereumBlockHandlerEntity
	EthereumBlockHandlerFilterEntity
	EthereumCallHandlerEntity
	EthereumContractEventHandler
	EthereumContractSource
)

var metadataKindNames = [...]string{
	"SubgraphManifest",
	"SubgraphDeployment",
	"SubgraphError",
	"EthereumContractDataSource",
	"EthereumContractDataSourceTemplate",
	"DynamicEthereumContractDataSource",
	"EthereumContractAbi",
	"EthereumBlockHandlerEntity",
	"EthereumBlockHandlerFilterEntity",
	"EthereumCallHandlerEntity",
	"EthereumContractEventHandler",
	"EthereumContractSource",
}

// String returns the kind's on-the-wire name. This value feeds the
// stable-hash contract and must never change once published.
func (k MetadataKind) String() string {
	if k < 0 || int(k) >= len(metadataKindNames) {
		return fmt.Sprintf("MetadataKind(%d)", int(k))
	}
	return metadataKindNames[k]
}

// entityTypeKind distinguishes the two EntityType variants.
type entityTypeKind int

const (
	entityTypeData entityTypeKind = iota
	entityTypeMetadata
)

// EntityType is the tagged union {Data(name), Metadata(kind)}. Data
// wraps a user-schema type name; Metadata wraps one of the fixed
// MetadataKind values used for internal bookkeeping.
type EntityType struct {
	kind entityTypeKind
	name string
	meta MetadataKind
}

// DataType constructs a Data entity type wrapping a user-schema name.
func DataType(name string) EntityType {
	return EntityType{kind: entityTypeData, name: name}
}

// MetadataType constructs a Metadata entity type wrapping a fixed kind.
func MetadataType(kind MetadataKind) EntityType {
	return EntityType{kind: entityTypeMetadata, meta: kind}
}

// IsData reports whether t is the Data variant.
func (t EntityType) IsData() bool { return t.kind == entityTypeData }

// IsMetadata reports whether t is the Metadata variant.
func (t EntityType) IsMetadata() bool { return t.kind == entityTypeMetadata }

// DataName returns the wrapped name. Panics if t is not Data — callers
// are expected to check IsData first, the same discipline the type's
// Rust origin enforces with an "expect" accessor.
func (t EntityType) DataName() string {
	if t.kind != entityTypeData {
		panic("types: DataName called on a Metadata entity type")
	}
	return t.name
}

// MetadataKind returns the wrapped kind. Panics if t is not Metadata.
func (t EntityType) MetadataKind() MetadataKind {
	if t.kind != entityTypeMetadata {
		panic("types: MetadataKind called on a Data entity type")
	}
	return t.meta
}

// String renders a Data type as its bare name and a Metadata type
// prefixed with a reserved sigil, so the two variants never collide in
// a flat namespace (e.g. log lines, bucket keys).
func (t EntityType) String() string {
	switch t.kind {
	case entityTypeData:
		return t.name
	case entityTypeMetadata:
		return "%" + t.meta.String()
	default:
		return "<invalid entity type>"
	}
}

// EntityKey is the triple (deployment, entity type, entity id) that
// addresses a single entity. It is totally ordered by component so it
// can be used as a stable map/B-tree key.
type EntityKey struct {
	Deployment DeploymentID
	Type       EntityType
	ID         string
}

// Less gives EntityKey a total order: deployment, then entity type
// string form, then id.
func (k EntityKey) Less(other EntityKey) bool {
	if k.Deployment != other.Deployment {
		return k.Deployment < other.Deployment
	}
	ks, os := k.Type.String(), other.Type.String()
	if ks != os {
		return ks < os
	}
	return k.ID < other.ID
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Deployment, k.Type, k.ID)
}

// BlockPointer identifies a block by number and hash. Number is signed
// 32-bit because a common backing store lacks unsigned integer types;
// values are always >= 0. MaxBlockNumber is reserved to mean "latest"
// in an EntityQuery.
type BlockPointer struct {
	Number int32
	Hash   [32]byte
}

// MaxBlockNumber is the sentinel query block meaning "latest".
const MaxBlockNumber int32 = 1<<31 - 1

func (p BlockPointer) String() string {
	return fmt.Sprintf("#%d (%x)", p.Number, p.Hash[:4])
}

// Value is the tagged union of scalar attribute values plus their
// homogeneous list form. The concrete variants are StringVal, IntVal,
// BigIntVal, BoolVal, BytesVal, BigDecimalVal, and ListVal.
type Value interface {
	isValue()
	// Equal reports value equality, used by the modification planner's
	// "differs from current snapshot" check.
	Equal(Value) bool
	String() string
}

// StringVal is the scalar string value.
type StringVal string

func (StringVal) isValue()             {}
func (v StringVal) String() string     { return string(v) }
func (v StringVal) Equal(o Value) bool { s, ok := o.(StringVal); return ok && s == v }

// IntVal is a 32-bit scalar integer value.
type IntVal int32

func (IntVal) isValue()             {}
func (v IntVal) String() string     { return fmt.Sprintf("%d", int32(v)) }
func (v IntVal) Equal(o Value) bool { i, ok := o.(IntVal); return ok && i == v }

// BigIntVal is an arbitrary-precision scalar integer value.
type BigIntVal struct{ *big.Int }

func NewBigInt(i *big.Int) BigIntVal { return BigIntVal{i} }

func (BigIntVal) isValue()         {}
func (v BigIntVal) String() string { return v.Int.String() }
func (v BigIntVal) Equal(o Value) bool {
	b, ok := o.(BigIntVal)
	if !ok || v.Int == nil || b.Int == nil {
		return ok && v.Int == nil && b.Int == nil
	}
	return v.Int.Cmp(b.Int) == 0
}

// BoolVal is the scalar boolean value.
type BoolVal bool

func (BoolVal) isValue()             {}
func (v BoolVal) String() string     { return fmt.Sprintf("%t", bool(v)) }
func (v BoolVal) Equal(o Value) bool { b, ok := o.(BoolVal); return ok && b == v }

// BytesVal is the scalar byte-string value.
type BytesVal []byte

func (BytesVal) isValue()         {}
func (v BytesVal) String() string { return fmt.Sprintf("0x%x", []byte(v)) }
func (v BytesVal) Equal(o Value) bool {
	b, ok := o.(BytesVal)
	if !ok || len(b) != len(v) {
		return false
	}
	for i := range v {
		if v[i] != b[i] {
			return false
		}
	}
	return true
}

// BigDecimalVal is an arbitrary-precision scalar decimal value.
type BigDecimalVal struct{ *big.Float }

func NewBigDecimal(f *big.Float) BigDecimalVal { return BigDecimalVal{f} }

func (BigDecimalVal) isValue()         {}
func (v BigDecimalVal) String() string { return v.Float.Text('g', -1) }
func (v BigDecimalVal) Equal(o Value) bool {
	b, ok := o.(BigDecimalVal)
	if !ok || v.Float == nil || b.Float == nil {
		return ok && v.Float == nil && b.Float == nil
	}
	return v.Float.Cmp(b.Float) == 0
}

// ListVal is a homogeneous list of scalar values.
type ListVal []Value

func (ListVal) isValue() {}
func (v ListVal) String() string {
	s := "["
	for i, e := range v {
		if i > 0 {
			s += ", "
		}
		s += e.String()
	}
	return s + "]"
}
func (v ListVal) Equal(o Value) bool {
	l, ok := o.(ListVal)
	if !ok || len(l) != len(v) {
		return false
	}
	for i := range v {
		if !v[i].Equal(l[i]) {
			return false
		}
	}
	return true
}

// nullVal is the explicit "this attribute is null" marker used by
// MergeRemoveNullFields to distinguish "set to null" (delete) from
// "absent" (leave untouched).
type nullVal struct{}

func (nullVal) isValue()           {}
func (nullVal) String() string     { return "null" }
func (nullVal) Equal(o Value) bool { _, ok := o.(nullVal); return ok }

// Null is the sentinel value representing an explicit null attribute.
var Null Value = nullVal{}

// IsNull reports whether v is the null sentinel.
func IsNull(v Value) bool {
	_, ok := v.(nullVal)
	return ok
}

// Entity is a mapping from attribute name to value.
type Entity map[string]Value

// ID returns the entity's id attribute. Every Entity's id attribute
// must be non-empty and equal to its key's entity id (an invariant
// enforced by the cache, not by this type).
func (e Entity) ID() (string, bool) {
	v, ok := e["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(StringVal)
	return string(s), ok
}

// Clone returns a shallow copy of e (attribute values are immutable so
// a shallow copy is a full copy).
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Equal reports whether e and other have exactly the same attributes
// with equal values.
func (e Entity) Equal(other Entity) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Merge overwrites: every attribute in update replaces the attribute in
// base (present or not); base attributes absent from update survive
// unchanged.
func Merge(base, update Entity) Entity {
	out := base.Clone()
	if out == nil {
		out = make(Entity, len(update))
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// MergeRemoveNullFields merges update onto base, but any attribute in
// update whose value is the null sentinel is removed from the result
// instead of copied. Every other attribute in the result equals the
// value in update, or, if absent there, the value in base. This is the
// merge used by every Update accumulation (package types EntityOp) and
// by the modification planner.
func MergeRemoveNullFields(base, update Entity) Entity {
	out := base.Clone()
	if out == nil {
		out = make(Entity, len(update))
	}
	for k, v := range update {
		if IsNull(v) {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// SortedAttrs returns the entity's attribute names in sorted order, for
// deterministic iteration (logging, golden-file tests).
func (e Entity) SortedAttrs() []string {
	names := make([]string, 0, len(e))
	for k := range e {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// OpKind enumerates the three EntityOp variants accumulated by the
// cache for a single key within a block.
type OpKind int

const (
	OpRemove OpKind = iota
	OpUpdate
	OpOverwrite
)

func (k OpKind) String() string {
	switch k {
	case OpRemove:
		return "Remove"
	case OpUpdate:
		return "Update"
	case OpOverwrite:
		return "Overwrite"
	default:
		return "Unknown"
	}
}

// EntityOp is the cache-internal pending write for one key: Remove,
// Update(entity), or Overwrite(entity). Entity is unset for Remove.
type EntityOp struct {
	Kind   OpKind
	Entity Entity
}

// RemoveOp is the Remove variant.
var RemoveOp = EntityOp{Kind: OpRemove}

// UpdateOp constructs the Update(entity) variant.
func UpdateOp(e Entity) EntityOp { return EntityOp{Kind: OpUpdate, Entity: e} }

// OverwriteOp constructs the Overwrite(entity) variant.
func OverwriteOp(e Entity) EntityOp { return EntityOp{Kind: OpOverwrite, Entity: e} }

// Accumulate folds next onto the current op per the accumulation law:
//
//	current \ next   Remove    Update(u)              Overwrite(u)
//	Remove           Remove    Overwrite(u)            Overwrite(u)
//	Update(c)        Remove    Update(merge(c,u))      Overwrite(u)
//	Overwrite(c)     Remove    Overwrite(merge(c,u))   Overwrite(u)
//
// Once a key has been removed and then updated, later commits must
// reinstate the entity wholesale rather than patch a possibly
// still-present stored row, hence the promotion to Overwrite. Remove
// and Overwrite are absorbing with respect to prior history because
// they ignore it.
func (current EntityOp) Accumulate(next EntityOp) EntityOp {
	switch next.Kind {
	case OpRemove:
		return RemoveOp
	case OpOverwrite:
		return next
	case OpUpdate:
		switch current.Kind {
		case OpRemove:
			return OverwriteOp(next.Entity)
		case OpUpdate:
			return UpdateOp(MergeRemoveNullFields(current.Entity, next.Entity))
		case OpOverwrite:
			return OverwriteOp(MergeRemoveNullFields(current.Entity, next.Entity))
		}
	}
	panic("types: unreachable EntityOp kind")
}

// ModKind enumerates the three EntityModification variants that make up
// an atomic commit.
type ModKind int

const (
	ModInsert ModKind = iota
	ModOverwrite
	ModRemove
)

// EntityModification is one atomic transaction unit: Insert(key,data),
// Overwrite(key,data), or Remove(key). At most one modification exists
// per key per commit.
type EntityModification struct {
	Kind ModKind
	Key  EntityKey
	Data Entity
}

func Insert(key EntityKey, data Entity) EntityModification {
	return EntityModification{Kind: ModInsert, Key: key, Data: data}
}

func Overwrite(key EntityKey, data Entity) EntityModification {
	return EntityModification{Kind: ModOverwrite, Key: key, Data: data}
}

func Remove(key EntityKey) EntityModification {
	return EntityModification{Kind: ModRemove, Key: key}
}
