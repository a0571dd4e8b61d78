package wallet

import (
	"github.com/bytedance/sonic"

	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/store"
)

const (
	// bucketPrefix is where wallets are stored, keyed by wallet id.
	bucketPrefix = "wallet:"
	// addrIndexPrefix is a secondary index from wallet address to id.
	addrIndexPrefix = "walletaddr:"
)

// Bucket is a type-safe wrapper around the raw key-value store for wallet
// records.
type Bucket struct{}

// NewBucket initializes a wallet bucket.
func NewBucket() Bucket {
	return Bucket{}
}

// Get returns the wallet with given id, or ErrNotFound.
func (b Bucket) Get(db store.KVStore, id string) (*Wallet, error) {
	raw, err := db.Get([]byte(bucketPrefix + id))
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if raw == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "wallet %q", id)
	}
	var w Wallet
	if err := sonic.Unmarshal(raw, &w); err != nil {
		return nil, errors.Wrap(errors.ErrModel, err.Error())
	}
	return &w, nil
}

// GetByAddress resolves the wallet through the address index.
func (b Bucket) GetByAddress(db store.KVStore, addr []byte) (*Wallet, error) {
	id, err := db.Get(append([]byte(addrIndexPrefix), addr...))
	if err != nil {
		return nil, errors.Wrap(err, "index lookup")
	}
	if id == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "wallet address %X", addr)
	}
	return b.Get(db, string(id))
}

// Save persists the wallet and maintains the address index. A wallet address
// belongs to exactly one wallet: saving a new wallet whose address is already
// indexed under a different id returns ErrDuplicate.
func (b Bucket) Save(db store.KVStore, w *Wallet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	idxKey := append([]byte(addrIndexPrefix), w.Address...)
	existing, err := db.Get(idxKey)
	if err != nil {
		return errors.Wrap(err, "index lookup")
	}
	if existing != nil && string(existing) != w.ID {
		return errors.Wrapf(errors.ErrDuplicate,
			"address %X already belongs to wallet %q", w.Address, existing)
	}
	raw, err := sonic.Marshal(w)
	if err != nil {
		return errors.Wrap(errors.ErrModel, err.Error())
	}
	if err := db.Set([]byte(bucketPrefix+w.ID), raw); err != nil {
		return errors.Wrap(err, "save wallet")
	}
	if err := db.Set(idxKey, []byte(w.ID)); err != nil {
		return errors.Wrap(err, "save address index")
	}
	return nil
}

// Iterate walks all stored wallets, stopping early when fn returns false.
func (b Bucket) Iterate(db store.KVStore, fn func(*Wallet) bool) error {
	start, end := store.PrefixRange([]byte(bucketPrefix))
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
		var w Wallet
		if err := sonic.Unmarshal(raw, &w); err != nil {
			return errors.Wrap(errors.ErrModel, err.Error())
		}
		if !fn(&w) {
			return nil
		}
	}
}
