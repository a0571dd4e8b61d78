package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/chain"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/crypto"
	"github.com/vaultsig/vaultsig/errors"
	"github.com/vaultsig/vaultsig/events"
	"github.com/vaultsig/vaultsig/store"
)

// DefaultMaxOwners caps the owner set size unless configured otherwise.
const DefaultMaxOwners = 10

// Registry owns the set of multi-sig wallets and all wallet scoped mutable
// state (nonce, configuration). Mutations of a single wallet are serialized
// through a per-wallet lock which callers may also acquire to span
// multi-step read-check-act sequences.
type Registry struct {
	db     store.KVStore
	bucket Bucket

	chain  chain.Provider
	derive crypto.Deriver
	bus    *events.Bus
	log    *zap.Logger

	maxOwners int
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// RegistryConfig carries the registry collaborators. Zero values select
// sensible defaults where they exist; Chain may be nil when no chain
// connectivity is available (initial nonces default to 0).
type RegistryConfig struct {
	Chain     chain.Provider
	Derive    crypto.Deriver
	Bus       *events.Bus
	Log       *zap.Logger
	MaxOwners int
	Now       func() time.Time
}

// NewRegistry returns a registry persisting wallets in the given store.
func NewRegistry(db store.KVStore, cfg RegistryConfig) *Registry {
	if cfg.Derive == nil {
		cfg.Derive = crypto.WalletAddress
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.MaxOwners <= 0 {
		cfg.MaxOwners = DefaultMaxOwners
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Registry{
		db:        db,
		bucket:    NewBucket(),
		chain:     cfg.Chain,
		derive:    cfg.Derive,
		bus:       cfg.Bus,
		log:       cfg.Log,
		maxOwners: cfg.MaxOwners,
		now:       cfg.Now,
	}
}

// Lock acquires the per-wallet mutex and returns the unlock function.
// Callers must not perform network I/O while holding it.
func (r *Registry) Lock(walletID string) func() {
	r.mu.Lock()
	l, ok := r.locks[walletID]
	if !ok {
		if r.locks == nil {
			r.locks = make(map[string]*sync.Mutex)
		}
		l = new(sync.Mutex)
		r.locks[walletID] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// CreateReq describes a new wallet.
type CreateReq struct {
	Owners              []crypto.PublicKey
	Threshold           int32
	ChainID             string
	DailyLimit          *coin.Coin
	MonthlyLimit        *coin.Coin
	AllowedDestinations []vaultsig.Address
}

// Create validates the configuration, derives the deterministic wallet
// address and persists the wallet. The initial nonce is fetched from chain
// state and defaults to 0 when the lookup fails.
func (r *Registry) Create(ctx context.Context, req CreateReq) (*Wallet, error) {
	switch n := len(req.Owners); {
	case n == 0:
		return nil, errors.Wrap(ErrConfiguration, "no owners")
	case n > r.maxOwners:
		return nil, errors.Wrapf(ErrConfiguration, "too many owners: %d > %d", n, r.maxOwners)
	}
	if req.ChainID == "" {
		return nil, errors.Wrap(ErrConfiguration, "missing chain id")
	}

	addr := r.derive(req.Owners, req.Threshold, req.ChainID)

	now := vaultsig.AsUnixTime(r.now())
	w := &Wallet{
		ID:                  uuid.NewString(),
		Address:             addr,
		ChainID:             req.ChainID,
		Owners:              req.Owners,
		Threshold:           req.Threshold,
		Nonce:               r.initialNonce(ctx, addr, req.ChainID),
		DailyLimit:          req.DailyLimit.Clone(),
		MonthlyLimit:        req.MonthlyLimit.Clone(),
		AllowedDestinations: req.AllowedDestinations,
		Enabled:             true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := r.bucket.Save(r.db, w); err != nil {
		return nil, err
	}

	r.log.Info("wallet created",
		zap.String("wallet_id", w.ID),
		zap.String("address", w.Address.String()),
		zap.String("chain_id", w.ChainID),
		zap.Int32("threshold", w.Threshold),
		zap.Int("owners", len(w.Owners)))
	if r.bus != nil {
		r.bus.Publish(CreatedEvent{Wallet: w.Copy()})
	}
	return w.Copy(), nil
}

// initialNonce asks the chain for the account nonce, degrading to 0 so an
// unavailable chain gateway never blocks wallet creation.
func (r *Registry) initialNonce(ctx context.Context, addr vaultsig.Address, chainID string) uint64 {
	if r.chain == nil {
		return 0
	}
	nonce, err := r.chain.AccountNonce(ctx, addr, chainID)
	if err != nil {
		r.log.Warn("initial nonce lookup failed, defaulting to 0",
			zap.String("address", addr.String()),
			zap.Error(err))
		return 0
	}
	return nonce
}

// Get returns a copy of the wallet with given id.
func (r *Registry) Get(id string) (*Wallet, error) {
	w, err := r.bucket.Get(r.db, id)
	if err != nil {
		return nil, err
	}
	return w.Copy(), nil
}

// GetByAddress resolves a wallet through its derived address.
func (r *Registry) GetByAddress(addr vaultsig.Address) (*Wallet, error) {
	w, err := r.bucket.GetByAddress(r.db, addr)
	if err != nil {
		return nil, err
	}
	return w.Copy(), nil
}

// List returns copies of all wallets.
func (r *Registry) List() ([]*Wallet, error) {
	var out []*Wallet
	err := r.bucket.Iterate(r.db, func(w *Wallet) bool {
		out = append(out, w.Copy())
		return true
	})
	return out, err
}

// UpdateReq describes a wallet configuration change. Nil fields are left
// untouched.
type UpdateReq struct {
	ID                  string
	Owners              []crypto.PublicKey
	Threshold           *int32
	DailyLimit          *coin.Coin
	MonthlyLimit        *coin.Coin
	AllowedDestinations []vaultsig.Address
}

// Update applies the configuration change. The resulting configuration must
// still be valid: in particular the owner set may never shrink below the
// effective threshold. In-flight transactions keep the threshold and signer
// set snapshotted at their creation time.
func (r *Registry) Update(ctx context.Context, req UpdateReq) (*Wallet, error) {
	unlock := r.Lock(req.ID)
	defer unlock()

	w, err := r.bucket.Get(r.db, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Owners != nil {
		if len(req.Owners) > r.maxOwners {
			return nil, errors.Wrapf(ErrConfiguration, "too many owners: %d > %d", len(req.Owners), r.maxOwners)
		}
		w.Owners = req.Owners
	}
	if req.Threshold != nil {
		w.Threshold = *req.Threshold
	}
	if req.DailyLimit != nil {
		w.DailyLimit = req.DailyLimit.Clone()
	}
	if req.MonthlyLimit != nil {
		w.MonthlyLimit = req.MonthlyLimit.Clone()
	}
	if req.AllowedDestinations != nil {
		w.AllowedDestinations = req.AllowedDestinations
	}
	if len(w.Owners) < int(w.Threshold) {
		return nil, errors.Wrapf(ErrConfiguration,
			"owner set size %d below threshold %d", len(w.Owners), w.Threshold)
	}
	w.UpdatedAt = vaultsig.AsUnixTime(r.now())

	if err := r.bucket.Save(r.db, w); err != nil {
		return nil, err
	}

	r.log.Info("wallet updated", zap.String("wallet_id", w.ID))
	if r.bus != nil {
		r.bus.Publish(UpdatedEvent{Wallet: w.Copy()})
	}
	return w.Copy(), nil
}

// SetEnabled flips the enabled flag.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	unlock := r.Lock(id)
	defer unlock()

	w, err := r.bucket.Get(r.db, id)
	if err != nil {
		return err
	}
	if w.Enabled == enabled {
		return nil
	}
	w.Enabled = enabled
	w.UpdatedAt = vaultsig.AsUnixTime(r.now())
	if err := r.bucket.Save(r.db, w); err != nil {
		return err
	}
	r.log.Info("wallet enabled flag changed",
		zap.String("wallet_id", id), zap.Bool("enabled", enabled))
	if r.bus != nil {
		r.bus.Publish(UpdatedEvent{Wallet: w.Copy()})
	}
	return nil
}

// CurrentNonce returns the wallet's nonce without advancing it.
func (r *Registry) CurrentNonce(id string) (uint64, error) {
	w, err := r.bucket.Get(r.db, id)
	if err != nil {
		return 0, err
	}
	return w.Nonce, nil
}

// RaiseNonce advances the wallet nonce to the given value if it is higher
// than the current one. The nonce never decreases.
func (r *Registry) RaiseNonce(id string, nonce uint64) (uint64, error) {
	unlock := r.Lock(id)
	defer unlock()

	w, err := r.bucket.Get(r.db, id)
	if err != nil {
		return 0, err
	}
	if nonce <= w.Nonce {
		return w.Nonce, nil
	}
	w.Nonce = nonce
	w.UpdatedAt = vaultsig.AsUnixTime(r.now())
	if err := r.bucket.Save(r.db, w); err != nil {
		return 0, err
	}
	return nonce, nil
}
