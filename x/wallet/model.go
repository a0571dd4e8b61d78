package wallet

import (
	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/crypto"
	"github.com/vaultsig/vaultsig/errors"
)

// Wallet is a logical account controlled by a set of owners. An outbound
// transaction requires Threshold distinct owner signatures before it may be
// executed.
type Wallet struct {
	ID      string           `json:"id"`
	Address vaultsig.Address `json:"address"`
	ChainID string           `json:"chain_id"`

	// Owners is the ordered set of identities allowed to sign. Unique,
	// at most the registry's configured maximum.
	Owners    []crypto.PublicKey `json:"owners"`
	Threshold int32              `json:"threshold"`

	// Nonce is the wallet scoped sequence number. It is consumed at
	// execution time and never decreases.
	Nonce uint64 `json:"nonce"`

	// DailyLimit and MonthlyLimit cap the cumulative spend within the
	// rolling 24h and 30 day windows. Nil means unlimited.
	DailyLimit   *coin.Coin `json:"daily_limit,omitempty"`
	MonthlyLimit *coin.Coin `json:"monthly_limit,omitempty"`

	// AllowedDestinations restricts outbound destinations when not
	// empty.
	AllowedDestinations []vaultsig.Address `json:"allowed_destinations,omitempty"`

	Enabled   bool              `json:"enabled"`
	CreatedAt vaultsig.UnixTime `json:"created_at"`
	UpdatedAt vaultsig.UnixTime `json:"updated_at"`
}

// Validate enforces owner and threshold boundaries. The owner set maximum
// is a registry level setting, checked there.
func (w *Wallet) Validate() error {
	if w.ID == "" {
		return errors.Wrap(errors.ErrEmpty, "id")
	}
	if err := w.Address.Validate(); err != nil {
		return errors.Wrap(err, "address")
	}
	if w.ChainID == "" {
		return errors.Wrap(ErrConfiguration, "missing chain id")
	}
	if len(w.Owners) == 0 {
		return errors.Wrap(ErrConfiguration, "no owners")
	}
	seen := make(map[string]struct{}, len(w.Owners))
	for i, o := range w.Owners {
		if err := o.Validate(); err != nil {
			return errors.Wrapf(err, "owner %d", i)
		}
		if _, ok := seen[string(o)]; ok {
			return errors.Wrapf(ErrConfiguration, "duplicate owner %s", o)
		}
		seen[string(o)] = struct{}{}
	}
	if w.Threshold < 1 || int(w.Threshold) > len(w.Owners) {
		return errors.Wrapf(ErrConfiguration,
			"threshold %d outside [1, %d]", w.Threshold, len(w.Owners))
	}
	if err := validateLimit(w.DailyLimit); err != nil {
		return errors.Wrap(err, "daily limit")
	}
	if err := validateLimit(w.MonthlyLimit); err != nil {
		return errors.Wrap(err, "monthly limit")
	}
	if w.DailyLimit != nil && w.MonthlyLimit != nil &&
		!w.DailyLimit.SameType(*w.MonthlyLimit) {
		return errors.Wrap(ErrConfiguration, "limit ticker mismatch")
	}
	for i, dest := range w.AllowedDestinations {
		if err := dest.Validate(); err != nil {
			return errors.Wrapf(err, "allowed destination %d", i)
		}
	}
	return nil
}

func validateLimit(limit *coin.Coin) error {
	if limit == nil {
		return nil
	}
	if err := limit.Validate(); err != nil {
		return err
	}
	if !limit.IsPositive() {
		return errors.Wrap(ErrConfiguration, "limit must be positive")
	}
	return nil
}

// IsOwner checks membership of the identity in the owner set.
func (w *Wallet) IsOwner(pub crypto.PublicKey) bool {
	for _, o := range w.Owners {
		if o.Equals(pub) {
			return true
		}
	}
	return false
}

// AllowsDestination reports if the destination passes the allow-list. An
// empty allow-list admits any destination.
func (w *Wallet) AllowsDestination(dest vaultsig.Address) bool {
	if len(w.AllowedDestinations) == 0 {
		return true
	}
	for _, a := range w.AllowedDestinations {
		if a.Equals(dest) {
			return true
		}
	}
	return false
}

// Copy returns an independent copy so callers can never mutate stored
// state through a returned wallet.
func (w *Wallet) Copy() *Wallet {
	owners := make([]crypto.PublicKey, len(w.Owners))
	for i, o := range w.Owners {
		owners[i] = append(crypto.PublicKey(nil), o...)
	}
	var dests []vaultsig.Address
	if w.AllowedDestinations != nil {
		dests = make([]vaultsig.Address, len(w.AllowedDestinations))
		for i, d := range w.AllowedDestinations {
			dests[i] = d.Clone()
		}
	}
	return &Wallet{
		ID:                  w.ID,
		Address:             w.Address.Clone(),
		ChainID:             w.ChainID,
		Owners:              owners,
		Threshold:           w.Threshold,
		Nonce:               w.Nonce,
		DailyLimit:          w.DailyLimit.Clone(),
		MonthlyLimit:        w.MonthlyLimit.Clone(),
		AllowedDestinations: dests,
		Enabled:             w.Enabled,
		CreatedAt:           w.CreatedAt,
		UpdatedAt:           w.UpdatedAt,
	}
}
