package entitystore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	bolt "go.etcd.io/bbolt"

	"github.com/ledgerstore/ledgerstore/pkg/log"
	"github.com/ledgerstore/ledgerstore/pkg/query"
	"github.com/ledgerstore/ledgerstore/pkg/storeerr"
	"github.com/ledgerstore/ledgerstore/pkg/types"
)

var (
	bucketEntities = []byte("entities")
	bucketMeta     = []byte("meta")
	keyBlockPtr    = []byte("blockptr")
)

// BoltStore implements Store using an embedded BoltDB file, one
// top-level bucket per deployment. Mirrors the bucket-per-collection,
// JSON-row, db.Update/db.View transaction pattern of the BoltDB-backed
// cluster store this package is grounded on.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "entities.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("entitystore: open %s: %w", dbPath, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

func depBucket(tx *bolt.Tx, deployment types.DeploymentID, create bool) (*bolt.Bucket, error) {
	name := []byte(deployment)
	if create {
		return tx.CreateBucketIfNotExists(name)
	}
	b := tx.Bucket(name)
	if b == nil {
		return nil, storeerr.NewDeploymentNotFound(string(deployment))
	}
	return b, nil
}

func typeBucket(dep *bolt.Bucket, entityType types.EntityType, create bool) (*bolt.Bucket, error) {
	entities := dep.Bucket(bucketEntities)
	if entities == nil {
		if !create {
			return nil, nil
		}
		var err error
		entities, err = dep.CreateBucketIfNotExists(bucketEntities)
		if err != nil {
			return nil, err
		}
	}
	name := []byte(entityType.String())
	if create {
		return entities.CreateBucketIfNotExists(name)
	}
	return entities.Bucket(name), nil
}

// Get implements Reader.
func (s *BoltStore) Get(ctx context.Context, key types.EntityKey) (types.Entity, bool, error) {
	var entity types.Entity
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		dep := tx.Bucket([]byte(key.Deployment))
		if dep == nil {
			return nil
		}
		tb, err := typeBucket(dep, key.Type, false)
		if err != nil || tb == nil {
			return err
		}
		data := tb.Get([]byte(key.ID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entity); err != nil {
			return storeerr.NewUnknown(err)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return entity, found, nil
}

// GetMany implements Reader.
func (s *BoltStore) GetMany(ctx context.Context, deployment types.DeploymentID, ids map[types.EntityType][]string) (map[types.EntityType][]types.Entity, error) {
	out := make(map[types.EntityType][]types.Entity, len(ids))
	err := s.db.View(func(tx *bolt.Tx) error {
		dep := tx.Bucket([]byte(deployment))
		if dep == nil {
			return nil
		}
		for entityType, wantIDs := range ids {
			tb, err := typeBucket(dep, entityType, false)
			if err != nil {
				return err
			}
			if tb == nil {
				continue
			}
			var found []types.Entity
			for _, id := range wantIDs {
				data := tb.Get([]byte(id))
				if data == nil {
					continue
				}
				var e types.Entity
				if err := json.Unmarshal(data, &e); err != nil {
					return storeerr.NewUnknown(err)
				}
				found = append(found, e)
			}
			if len(found) > 0 {
				out[entityType] = found
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Find implements Reader. The query must already have been simplified
// to an All collection (package query.Simplify); any remaining Window
// collection is a QueryExecutionError since this reference store
// implements only the common-case backing-store contract the cache and
// planner rely on.
func (s *BoltStore) Find(ctx context.Context, q query.Query) ([]types.Entity, error) {
	q = query.Simplify(q)
	if q.Collection.Kind != query.CollectionAll {
		return nil, storeerr.NewQueryExecutionError("entitystore: Window collection did not simplify to All")
	}

	var matched []types.Entity
	err := s.db.View(func(tx *bolt.Tx) error {
		dep := tx.Bucket([]byte(q.Deployment))
		if dep == nil {
			return nil
		}
		for _, typeName := range q.Collection.Types {
			tb, err := typeBucket(dep, types.DataType(typeName), false)
			if err != nil {
				return err
			}
			if tb == nil {
				continue
			}
			cur := tb.Cursor()
			for k, v := cur.First(); k != nil; k, v = cur.Next() {
				var e types.Entity
				if err := json.Unmarshal(v, &e); err != nil {
					return storeerr.NewUnknown(err)
				}
				if matchFilter(e, q.Filter) {
					matched = append(matched, e)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	applyOrder(matched, q.Order)
	return applyRange(matched, q.Range), nil
}

// FindOne implements Reader.
func (s *BoltStore) FindOne(ctx context.Context, q query.Query) (types.Entity, bool, error) {
	one := uint32(1)
	q.Range = query.Range{First: &one}
	results, err := s.Find(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

// BlockPtr implements Writer.
func (s *BoltStore) BlockPtr(ctx context.Context, deployment types.DeploymentID) (types.BlockPointer, bool, error) {
	var ptr types.BlockPointer
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		dep := tx.Bucket([]byte(deployment))
		if dep == nil {
			return nil
		}
		var err error
		ptr, found, err = getBlockPtr(dep)
		return err
	})
	return ptr, found, err
}

// TransactBlockOperations implements Writer. BoltStore does not persist
// deterministicErrors: the argument is accepted and no record of it is
// written.
func (s *BoltStore) TransactBlockOperations(ctx context.Context, deployment types.DeploymentID, blockTo types.BlockPointer, parentHash [32]byte, mods []types.EntityModification, deterministicErrors []error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		dep, err := depBucket(tx, deployment, true)
		if err != nil {
			return err
		}
		current, hasCurrent, err := getBlockPtr(dep)
		if err != nil {
			return err
		}
		if hasCurrent && current.Hash != parentHash {
			cvErr := storeerr.NewConstraintViolation(fmt.Sprintf(
				"transact_block_operations: block %d's parent does not match deployment %q's current pointer %s",
				blockTo.Number, deployment, current))
			log.WithBlock(blockTo.Number, hex.EncodeToString(blockTo.Hash[:])).Error().
				Err(cvErr).
				Str("deployment", string(deployment)).
				Msg("constraint violation: rejecting block with a mismatched parent")
			return cvErr
		}
		if err := applyMods(dep, mods); err != nil {
			return err
		}
		return putBlockPtr(dep, blockTo)
	})
}

// RevertBlockOperations implements Writer. The reference store keeps
// no per-block undo log, so a revert here only rewinds the pointer:
// entity rows written by the reverted block are left as they are.
func (s *BoltStore) RevertBlockOperations(ctx context.Context, deployment types.DeploymentID, blockTo types.BlockPointer, currentHash [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		dep, err := depBucket(tx, deployment, true)
		if err != nil {
			return err
		}
		current, hasCurrent, err := getBlockPtr(dep)
		if err != nil {
			return err
		}
		if !hasCurrent || current.Hash != currentHash {
			cvErr := storeerr.NewConstraintViolation(fmt.Sprintf(
				"revert_block_operations: deployment %q's current pointer does not match expected hash", deployment))
			log.WithBlock(blockTo.Number, hex.EncodeToString(blockTo.Hash[:])).Error().
				Err(cvErr).
				Str("deployment", string(deployment)).
				Msg("constraint violation: rejecting a revert against an unexpected current pointer")
			return cvErr
		}
		return putBlockPtr(dep, blockTo)
	})
}

func getBlockPtr(dep *bolt.Bucket) (types.BlockPointer, bool, error) {
	meta := dep.Bucket(bucketMeta)
	if meta == nil {
		return types.BlockPointer{}, false, nil
	}
	data := meta.Get(keyBlockPtr)
	if data == nil {
		return types.BlockPointer{}, false, nil
	}
	var ptr types.BlockPointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return types.BlockPointer{}, false, storeerr.NewUnknown(err)
	}
	return ptr, true, nil
}

func putBlockPtr(dep *bolt.Bucket, ptr types.BlockPointer) error {
	meta, err := dep.CreateBucketIfNotExists(bucketMeta)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ptr)
	if err != nil {
		return storeerr.NewUnknown(err)
	}
	return meta.Put(keyBlockPtr, data)
}

func applyMods(dep *bolt.Bucket, mods []types.EntityModification) error {
	seen := make(map[types.EntityKey]bool, len(mods))
	for _, m := range mods {
		if seen[m.Key] {
			cvErr := storeerr.NewConstraintViolation(fmt.Sprintf("two modifications for key %s in one commit", m.Key))
			log.WithEntityType(m.Key.Type.String()).Error().
				Err(cvErr).
				Str("deployment", string(m.Key.Deployment)).
				Str("entity_id", m.Key.ID).
				Msg("constraint violation: planner emitted two modifications for the same key")
			return cvErr
		}
		seen[m.Key] = true

		tb, err := typeBucket(dep, m.Key.Type, true)
		if err != nil {
			return err
		}
		switch m.Kind {
		case types.ModInsert, types.ModOverwrite:
			data, err := json.Marshal(m.Data)
			if err != nil {
				return storeerr.NewUnknown(err)
			}
			if err := tb.Put([]byte(m.Key.ID), data); err != nil {
				return storeerr.NewUnknown(err)
			}
		case types.ModRemove:
			if err := tb.Delete([]byte(m.Key.ID)); err != nil {
				return storeerr.NewUnknown(err)
			}
		}
	}
	return nil
}

// matchFilter evaluates f against e.
func matchFilter(e types.Entity, f query.Filter) bool {
	if f.IsZero() {
		return true
	}
	switch f.Op {
	case query.FilterAnd:
		for _, c := range f.Children {
			if !matchFilter(e, c) {
				return false
			}
		}
		return true
	case query.FilterOr:
		for _, c := range f.Children {
			if matchFilter(e, c) {
				return true
			}
		}
		return len(f.Children) == 0
	case query.FilterEqual:
		v, ok := e[f.Attr]
		return ok && v.Equal(f.Value)
	case query.FilterNot:
		v, ok := e[f.Attr]
		return !ok || !v.Equal(f.Value)
	case query.FilterGreater, query.FilterLess, query.FilterGe, query.FilterLe:
		return compareFilter(e, f)
	case query.FilterIn:
		v, ok := e[f.Attr]
		if !ok {
			return false
		}
		for _, want := range f.Values {
			if v.Equal(want) {
				return true
			}
		}
		return false
	case query.FilterNotIn:
		v, ok := e[f.Attr]
		if !ok {
			return true
		}
		for _, want := range f.Values {
			if v.Equal(want) {
				return false
			}
		}
		return true
	case query.FilterContains:
		return containsValue(e, f.Attr, f.Value, true)
	case query.FilterNotContains:
		return !containsValue(e, f.Attr, f.Value, true)
	case query.FilterStartsWith:
		return stringMatch(e, f.Attr, f.Value, strings.HasPrefix, true)
	case query.FilterNotStartsWith:
		return stringMatch(e, f.Attr, f.Value, strings.HasPrefix, false)
	case query.FilterEndsWith:
		return stringMatch(e, f.Attr, f.Value, strings.HasSuffix, true)
	case query.FilterNotEndsWith:
		return stringMatch(e, f.Attr, f.Value, strings.HasSuffix, false)
	default:
		return false
	}
}

func containsValue(e types.Entity, attr string, needle types.Value, want bool) bool {
	v, ok := e[attr]
	if !ok {
		return !want
	}
	switch list := v.(type) {
	case types.ListVal:
		for _, item := range list {
			if item.Equal(needle) {
				return want
			}
		}
		return !want
	case types.StringVal:
		needleStr, ok := needle.(types.StringVal)
		if !ok {
			return !want
		}
		return strings.Contains(string(list), string(needleStr)) == want
	default:
		return !want
	}
}

func stringMatch(e types.Entity, attr string, needle types.Value, fn func(s, prefix string) bool, want bool) bool {
	v, ok := e[attr]
	if !ok {
		return !want
	}
	s, ok := v.(types.StringVal)
	if !ok {
		return !want
	}
	n, ok := needle.(types.StringVal)
	if !ok {
		return !want
	}
	return fn(string(s), string(n)) == want
}

func compareFilter(e types.Entity, f query.Filter) bool {
	v, ok := e[f.Attr]
	if !ok {
		return false
	}
	c := compareValue(v, f.Value)
	switch f.Op {
	case query.FilterGreater:
		return c > 0
	case query.FilterLess:
		return c < 0
	case query.FilterGe:
		return c >= 0
	case query.FilterLe:
		return c <= 0
	}
	return false
}

// compareValue orders two scalar values of the same dynamic type.
// Incomparable types sort as equal (0); the reference store does not
// attempt cross-type coercion, which a real backing store's schema
// layer rules out before query execution ever sees a comparator.
func compareValue(a, b types.Value) int {
	switch x := a.(type) {
	case types.IntVal:
		y, ok := b.(types.IntVal)
		if !ok {
			return 0
		}
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case types.StringVal:
		y, ok := b.(types.StringVal)
		if !ok {
			return 0
		}
		return strings.Compare(string(x), string(y))
	case types.BigIntVal:
		y, ok := b.(types.BigIntVal)
		if !ok || x.Int == nil || y.Int == nil {
			return 0
		}
		return x.Int.Cmp(y.Int)
	case types.BigDecimalVal:
		y, ok := b.(types.BigDecimalVal)
		if !ok || x.Float == nil || y.Float == nil {
			return 0
		}
		return x.Float.Cmp(y.Float)
	default:
		return 0
	}
}

func applyOrder(entities []types.Entity, order query.Order) {
	switch order.Dir {
	case query.OrderUnordered:
		return
	case query.OrderDefault:
		sort.SliceStable(entities, func(i, j int) bool {
			return idOf(entities[i]) < idOf(entities[j])
		})
	case query.OrderAscending:
		sort.SliceStable(entities, func(i, j int) bool {
			c := compareValue(entities[i][order.Attr], entities[j][order.Attr])
			if c != 0 {
				return c < 0
			}
			return idOf(entities[i]) < idOf(entities[j])
		})
	case query.OrderDescending:
		sort.SliceStable(entities, func(i, j int) bool {
			c := compareValue(entities[i][order.Attr], entities[j][order.Attr])
			if c != 0 {
				return c > 0
			}
			return idOf(entities[i]) < idOf(entities[j])
		})
	}
}

func idOf(e types.Entity) string {
	id, _ := e.ID()
	return id
}

func applyRange(entities []types.Entity, r query.Range) []types.Entity {
	first := uint32(100)
	if r.First != nil {
		first = *r.First
	}
	skip := int(r.Skip)
	if skip >= len(entities) {
		return nil
	}
	entities = entities[skip:]
	if int(first) < len(entities) {
		entities = entities[:first]
	}
	return entities
}
