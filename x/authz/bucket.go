package authz

import (
	"encoding/binary"

	"github.com/bytedance/sonic"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/store"
)

const (
	// txPrefix stores transactions keyed by id.
	txPrefix = "tx:"
	// openPrefix is a secondary index of non-terminal transactions keyed
	// by big-endian expiry then id, so an expiry sweep scans only what is
	// already due.
	openPrefix = "txopen:"
)

// Bucket is a type-safe wrapper around the raw key-value store for
// transaction records. Alongside the primary record it maintains an index of
// open transactions ordered by expiry.
type Bucket struct{}

// NewBucket initializes a transaction bucket.
func NewBucket() Bucket {
	return Bucket{}
}

func openKey(expiresAt vaultsig.UnixTime, id string) []byte {
	key := make([]byte, 0, len(openPrefix)+8+len(id))
	key = append(key, openPrefix...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(expiresAt))
	key = append(key, ts[:]...)
	return append(key, id...)
}

// Get returns the transaction with given id, or ErrNotFound.
func (b Bucket) Get(db store.KVStore, id string) (*Transaction, error) {
	raw, err := db.Get([]byte(txPrefix + id))
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if raw == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "transaction %q", id)
	}
	var tx Transaction
	if err := sonic.Unmarshal(raw, &tx); err != nil {
		return nil, errors.Wrap(errors.ErrModel, err.Error())
	}
	return &tx, nil
}

// Save persists the transaction and maintains the open index: non-terminal
// records are indexed by expiry, terminal ones are removed from the index.
func (b Bucket) Save(db store.KVStore, tx *Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	raw, err := sonic.Marshal(tx)
	if err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	if err := db.Set([]byte(txPrefix+tx.ID), raw); err != nil {
		return errors.Wrap(err, "save transaction")
	}
	key := openKey(tx.ExpiresAt, tx.ID)
	if tx.Status.Terminal() {
		if err := db.Delete(key); err != nil {
			return errors.Wrap(err, "drop open index")
		}
		return nil
	}
	if err := db.Set(key, []byte(tx.ID)); err != nil {
		return errors.Wrap(err, "save open index")
	}
	return nil
}

// OpenDue returns the ids of non-terminal transactions whose expiry is
// strictly before the given time. A transaction expiring exactly at now is
// not yet due.
func (b Bucket) OpenDue(db store.KVStore, now vaultsig.UnixTime) ([]string, error) {
	start := []byte(openPrefix)
	end := openKey(now, "")

	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, errors.Wrap(err, "iterator")
	}
	defer it.Release()

	var ids []string
	for {
		_, value, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return ids, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "next")
		}
		ids = append(ids, string(value))
	}
}

// Iterate walks all stored transactions, stopping early when fn returns
// false.
func (b Bucket) Iterate(db store.KVStore, fn func(*Transaction) bool) error {
	start, end := store.PrefixRange([]byte(txPrefix))
	it, err := db.Iterator(start, end)
	if err != nil {
		return errors.Wrap(err, "iterator")
	}
	defer it.Release()

	for {
		_, raw, err := it.Next()
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "next")
		}
		var tx Transaction
		if err := sonic.Unmarshal(raw, &tx); err != nil {
			return errors.Wrap(errors.ErrModel, err.Error())
		}
		if !fn(&tx) {
			return nil
		}
	}
}
