package store

// ReadOnlyKVStore is a simple byte-oriented read interface over a key-value
// store.
type ReadOnlyKVStore interface {
	// Get returns nil if the key is absent. An empty value and an absent
	// key are indistinguishable, do not store empty values.
	Get(key []byte) ([]byte, error)

	// Has checks for existence of the key.
	Has(key []byte) (bool, error)

	// Iterator returns an iterator over the [start, end) key range in
	// ascending order. A nil start iterates from the first key, a nil
	// end until the last one.
	Iterator(start, end []byte) (Iterator, error)
}

// KVStore is the read-write interface all persistence in this subsystem is
// built on. The authorization logic must not depend on which implementation
// backs it.
type KVStore interface {
	ReadOnlyKVStore

	// Set overwrites any previous value stored under the key.
	Set(key, value []byte) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(key []byte) error
}

// Iterator yields key-value pairs. Next returns errors.ErrIteratorDone when
// the range is exhausted. Release must always be called when done.
type Iterator interface {
	Next() (key, value []byte, err error)
	Release()
}
