// Package kv persists operator preferences in a local BadgerDB.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/rohithpranav45/storeiq/internal/domain/catalog"
)

type Store struct {
	db *badger.DB
}

// Open opens (or creates) the preference database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening preference store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory instance, used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func storeKey(operator string) []byte {
	return []byte("selected-store/" + operator)
}

// SaveSelectedStore writes the operator's store selection.
func (s *Store) SaveSelectedStore(operator string, st *catalog.Store) error {
	buf, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(operator), buf)
	})
}

// SelectedStore reads the persisted selection; nil when none exists.
func (s *Store) SelectedStore(operator string) (*catalog.Store, error) {
	var st *catalog.Store
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(operator))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var decoded catalog.Store
			if err := json.Unmarshal(val, &decoded); err != nil {
				return err
			}
			st = &decoded
			return nil
		})
	})
	return st, err
}

// ClearSelectedStore removes the selection; clearing a missing key is a no-op.
func (s *Store) ClearSelectedStore(operator string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(storeKey(operator))
	})
}
