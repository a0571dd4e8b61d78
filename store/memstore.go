package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// MemStore is a btree backed KVStore implementation. It is used by tests and
// as the non-durable deployment mode. Unlike a store driven from a single
// consensus loop, this one is hit by concurrent callers, so every operation
// takes the internal lock.
type MemStore struct {
	mu sync.RWMutex
	bt *btree.BTreeG[keyValue]
}

var _ KVStore = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		bt: btree.NewG(2, func(a, b keyValue) bool {
			return bytes.Compare(a.key, b.key) < 0
		}),
	}
}

func (s *MemStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.bt.Get(keyValue{key: key})
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), item.value...), nil
}

func (s *MemStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bt.Has(keyValue{key: key}), nil
}

func (s *MemStore) Set(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bt.ReplaceOrInsert(keyValue{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
	return nil
}

func (s *MemStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bt.Delete(keyValue{key: key})
	return nil
}

// Iterator returns an ascending iterator over a snapshot of the [start, end)
// range.
func (s *MemStore) Iterator(start, end []byte) (Iterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var kvs []keyValue
	collect := func(item keyValue) bool {
		if end != nil && bytes.Compare(item.key, end) >= 0 {
			return false
		}
		kvs = append(kvs, keyValue{
			key:   append([]byte(nil), item.key...),
			value: append([]byte(nil), item.value...),
		})
		return true
	}

	if start == nil {
		s.bt.Ascend(collect)
	} else {
		s.bt.AscendGreaterOrEqual(keyValue{key: start}, collect)
	}
	return newSliceIterator(kvs), nil
}
