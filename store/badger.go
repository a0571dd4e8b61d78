package store

import (
	"bytes"

	"github.com/dgraph-io/badger"
	pkgerrors "github.com/pkg/errors"

	"github.com/vaultsig/vaultsig/errors"
)

// BadgerStore is the durable KVStore implementation, backed by a badger
// database on disk.
type BadgerStore struct {
	db *badger.DB
}

var _ KVStore = (*BadgerStore)(nil)

// OpenBadger opens (creating if necessary) a badger database in the given
// directory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	// The store carries small metadata records, not blobs. Badger's
	// default logger is too chatty for a library, callers observe errors
	// through the returned values.
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database. The store must not be used
// afterwards.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (s *BadgerStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case err == nil:
		return value, nil
	case pkgerrors.Is(err, badger.ErrKeyNotFound):
		return nil, nil
	default:
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
}

func (s *BadgerStore) Has(key []byte) (bool, error) {
	value, err := s.Get(key)
	if err != nil {
		return false, err
	}
	return value != nil, nil
}

func (s *BadgerStore) Set(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (s *BadgerStore) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

// Iterator returns an ascending iterator over a snapshot of the [start, end)
// range. The range is collected within a single badger read transaction so
// the result is a consistent view.
func (s *BadgerStore) Iterator(start, end []byte) (Iterator, error) {
	var kvs []keyValue
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		if start == nil {
			it.Rewind()
		} else {
			it.Seek(start)
		}
		for ; it.Valid(); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			if end != nil && bytes.Compare(key, end) >= 0 {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			kvs = append(kvs, keyValue{key: key, value: value})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return newSliceIterator(kvs), nil
}
