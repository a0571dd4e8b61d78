package store

import (
	"github.com/vaultsig/vaultsig/errors"
)

// sliceIterator iterates over a snapshot of key-value pairs collected ahead
// of time. Snapshotting keeps the locking story of the backing stores
// simple: no iterator ever observes concurrent writes.
type sliceIterator struct {
	kvs []keyValue
	idx int
}

type keyValue struct {
	key   []byte
	value []byte
}

var _ Iterator = (*sliceIterator)(nil)

func newSliceIterator(kvs []keyValue) *sliceIterator {
	return &sliceIterator{kvs: kvs}
}

func (it *sliceIterator) Next() ([]byte, []byte, error) {
	if it.idx >= len(it.kvs) {
		return nil, nil, errors.ErrIteratorDone
	}
	kv := it.kvs[it.idx]
	it.idx++
	return kv.key, kv.value, nil
}

func (it *sliceIterator) Release() {
	it.kvs = nil
	it.idx = 0
}

// PrefixRange returns the [start, end) range that covers all keys with the
// given prefix.
func PrefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	// Prefix is all 0xFF, iterate until the end of the key space.
	return prefix, nil
}
