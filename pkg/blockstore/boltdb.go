package blockstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	bolt "go.etcd.io/bbolt"

	"github.com/ledgerstore/ledgerstore/pkg/types"
)

// BoltStore implements Store using an embedded BoltDB file, bucket
// path deployment/network with each block keyed by its hash, mirroring
// pkg/entitystore's bucket-per-namespace layout.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "blocks.db")
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore: open %s: %w", dbPath, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

type storedBlock struct {
	Number     int32
	Hash       [32]byte
	ParentHash [32]byte
	IsGenesis  bool
}

func networkBucket(tx *bolt.Tx, deployment types.DeploymentID, network string, create bool) (*bolt.Bucket, error) {
	dep := []byte(deployment)
	var depBucket *bolt.Bucket
	var err error
	if create {
		depBucket, err = tx.CreateBucketIfNotExists(dep)
	} else {
		depBucket = tx.Bucket(dep)
	}
	if err != nil || depBucket == nil {
		return depBucket, err
	}
	net := []byte(network)
	if create {
		return depBucket.CreateBucketIfNotExists(net)
	}
	return depBucket.Bucket(net), nil
}

func (s *BoltStore) UpsertBlocks(ctx context.Context, deployment types.DeploymentID, network string, blocks []Block) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, true)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			sb := storedBlock{Number: b.Ptr.Number, Hash: b.Ptr.Hash, ParentHash: b.ParentHash, IsGenesis: b.IsGenesis}
			data, err := json.Marshal(sb)
			if err != nil {
				return err
			}
			if err := nb.Put(b.Ptr.Hash[:], data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) BlockByHash(ctx context.Context, deployment types.DeploymentID, network string, hash [32]byte) (Block, bool, error) {
	var block Block
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, false)
		if err != nil || nb == nil {
			return err
		}
		data := nb.Get(hash[:])
		if data == nil {
			return nil
		}
		var sb storedBlock
		if err := json.Unmarshal(data, &sb); err != nil {
			return err
		}
		block = Block{Ptr: types.BlockPointer{Number: sb.Number, Hash: sb.Hash}, ParentHash: sb.ParentHash, IsGenesis: sb.IsGenesis}
		found = true
		return nil
	})
	return block, found, err
}

func (s *BoltStore) BlocksByNumber(ctx context.Context, deployment types.DeploymentID, network string, number int32) ([]Block, error) {
	var blocks []Block
	err := s.db.View(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, false)
		if err != nil || nb == nil {
			return err
		}
		return nb.ForEach(func(k, v []byte) error {
			var sb storedBlock
			if err := json.Unmarshal(v, &sb); err != nil {
				return err
			}
			if sb.Number == number {
				blocks = append(blocks, Block{Ptr: types.BlockPointer{Number: sb.Number, Hash: sb.Hash}, ParentHash: sb.ParentHash, IsGenesis: sb.IsGenesis})
			}
			return nil
		})
	})
	return blocks, err
}

func (s *BoltStore) MaxNumber(ctx context.Context, deployment types.DeploymentID, network string) (int32, bool, error) {
	var max int32
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, false)
		if err != nil || nb == nil {
			return err
		}
		return nb.ForEach(func(k, v []byte) error {
			var sb storedBlock
			if err := json.Unmarshal(v, &sb); err != nil {
				return err
			}
			if !found || sb.Number > max {
				max = sb.Number
				found = true
			}
			return nil
		})
	})
	return max, found, err
}

func (s *BoltStore) DeleteBlocks(ctx context.Context, deployment types.DeploymentID, network string, hashes [][32]byte) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, true)
		if err != nil {
			return err
		}
		for _, h := range hashes {
			if nb.Get(h[:]) != nil {
				deleted++
			}
			if err := nb.Delete(h[:]); err != nil {
				return err
			}
		}
		return nil
	})
	return deleted, err
}

func (s *BoltStore) DeleteBlocksBelow(ctx context.Context, deployment types.DeploymentID, network string, cutoff int32) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		nb, err := networkBucket(tx, deployment, network, true)
		if err != nil {
			return err
		}
		var toDelete [][]byte
		err = nb.ForEach(func(k, v []byte) error {
			var sb storedBlock
			if err := json.Unmarshal(v, &sb); err != nil {
				return err
			}
			if sb.Number < cutoff {
				key := make([]byte, len(k))
				copy(key, k)
				toDelete = append(toDelete, key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range toDelete {
			if err := nb.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}
