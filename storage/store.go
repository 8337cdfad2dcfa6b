// Package storage persists the withdrawal engine's state in LevelDB: the
// per-user ledger (balances and last nonces) and an archive of issued
// batches. The engine itself is purely in-memory; this layer exists so a
// relayer can restart without losing replay protection, and so users can
// re-fetch their proofs after the batch handoff.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/scobru/shogun-bridge/bridge"
	"github.com/scobru/shogun-bridge/core/types"
)

// Key prefixes. Account records live under "a/<20-byte address>", batch
// records under "b/<32-byte batch id>".
var (
	accountPrefix = []byte("a/")
	batchPrefix   = []byte("b/")
)

// ErrBatchNotFound is returned when loading a batch id with no record.
var ErrBatchNotFound = fmt.Errorf("storage: batch not found")

// Store wraps LevelDB for bridge persistence. LevelDB handles its own
// synchronization, so a Store is safe for concurrent use.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a LevelDB database at the given path. An empty
// path opens an in-memory database, which is what tests use.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveLedger writes every account record, replacing any previous ledger
// snapshot. Writes go through one batch so a crash never leaves a
// half-written ledger.
func (s *Store) SaveLedger(records []bridge.AccountRecord) error {
	wb := new(leveldb.Batch)

	// Drop stale account keys first: an account present in the old
	// snapshot but absent from the new one would otherwise survive.
	iter := s.db.NewIterator(util.BytesPrefix(accountPrefix), nil)
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		wb.Delete(key)
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("storage: scan accounts: %w", err)
	}

	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("storage: encode account %s: %w", rec.User.Hex(), err)
		}
		wb.Put(accountKey(rec.User), data)
	}
	if err := s.db.Write(wb, nil); err != nil {
		return fmt.Errorf("storage: write ledger: %w", err)
	}
	return nil
}

// LoadLedger reads every persisted account record, in key (address) order.
// A fresh database yields an empty slice and no error.
func (s *Store) LoadLedger() ([]bridge.AccountRecord, error) {
	var records []bridge.AccountRecord
	iter := s.db.NewIterator(util.BytesPrefix(accountPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		var rec bridge.AccountRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("storage: decode account %x: %w", iter.Key(), err)
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: scan ledger: %w", err)
	}
	return records, nil
}

// SaveBatch archives an issued batch under its id.
func (s *Store) SaveBatch(b *types.Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("storage: encode batch %s: %w", b.ID.Hex(), err)
	}
	if err := s.db.Put(batchKey(b.ID), data, nil); err != nil {
		return fmt.Errorf("storage: write batch %s: %w", b.ID.Hex(), err)
	}
	return nil
}

// LoadBatch retrieves an archived batch by id.
func (s *Store) LoadBatch(id types.Hash) (*types.Batch, error) {
	data, err := s.db.Get(batchKey(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read batch %s: %w", id.Hex(), err)
	}
	var b types.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("storage: decode batch %s: %w", id.Hex(), err)
	}
	return &b, nil
}

// BatchIDs lists every archived batch id, in key order.
func (s *Store) BatchIDs() ([]types.Hash, error) {
	var ids []types.Hash
	iter := s.db.NewIterator(util.BytesPrefix(batchPrefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := iter.Key()
		if len(key) != len(batchPrefix)+types.HashLength {
			return nil, fmt.Errorf("storage: malformed batch key %x", key)
		}
		ids = append(ids, types.BytesToHash(key[len(batchPrefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("storage: scan batches: %w", err)
	}
	return ids, nil
}

func accountKey(user types.Address) []byte {
	return append(append([]byte{}, accountPrefix...), user[:]...)
}

func batchKey(id types.Hash) []byte {
	return append(append([]byte{}, batchPrefix...), id[:]...)
}
