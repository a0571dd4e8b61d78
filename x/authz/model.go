package authz

import (
	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/coin"
	"github.com/vaultsig/vaultsig/crypto"
	"github.com/vaultsig/vaultsig/errors"
)

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPartiallySigned Status = "PARTIALLY_SIGNED"
	StatusReady           Status = "READY"
	StatusExecuted        Status = "EXECUTED"
	StatusExpired         Status = "EXPIRED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal reports whether no further transition is possible from this
// status.
func (s Status) Terminal() bool {
	switch s {
	case StatusExecuted, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// StdSignature is a single collected approval.
type StdSignature struct {
	Signer    crypto.PublicKey  `json:"signer"`
	Signature []byte            `json:"signature"`
	SignedAt  vaultsig.UnixTime `json:"signed_at"`
}

// Transaction is an outbound transfer moving through the authorization
// pipeline. Required and Signers are snapshotted from the wallet at creation
// time, so later wallet reconfiguration never affects transactions already
// in flight.
type Transaction struct {
	ID          string           `json:"id"`
	WalletID    string           `json:"wallet_id"`
	ChainID     string           `json:"chain_id"`
	Destination vaultsig.Address `json:"destination"`
	Amount      coin.Coin        `json:"amount"`
	Data        []byte           `json:"data,omitempty"`
	GasLimit    uint64           `json:"gas_limit"`
	GasPrice    uint64           `json:"gas_price"`

	// Nonce is the wallet nonce observed at creation. The value actually
	// consumed is determined again at execution time.
	Nonce uint64 `json:"nonce"`

	Required   int32              `json:"required"`
	Signers    []crypto.PublicKey `json:"signers"`
	Signatures []StdSignature     `json:"signatures,omitempty"`

	Status      Status            `json:"status"`
	CreatedAt   vaultsig.UnixTime `json:"created_at"`
	ExpiresAt   vaultsig.UnixTime `json:"expires_at"`
	ExecutedAt  vaultsig.UnixTime `json:"executed_at,omitempty"`
	BroadcastID string            `json:"broadcast_id,omitempty"`
}

// Validate checks structural integrity of a stored record.
func (tx *Transaction) Validate() error {
	if tx.ID == "" {
		return errors.Wrap(errors.ErrEmpty, "id")
	}
	if tx.WalletID == "" {
		return errors.Wrap(errors.ErrEmpty, "wallet id")
	}
	if tx.ChainID == "" {
		return errors.Wrap(errors.ErrEmpty, "chain id")
	}
	if err := tx.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if err := tx.Amount.Validate(); err != nil {
		return errors.Wrap(err, "amount")
	}
	if !tx.Amount.IsPositive() {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	if tx.Required < 1 || int(tx.Required) > len(tx.Signers) {
		return errors.Wrapf(errors.ErrModel,
			"required %d outside [1, %d]", tx.Required, len(tx.Signers))
	}
	if tx.ExpiresAt <= tx.CreatedAt {
		return errors.Wrap(errors.ErrModel, "expiry not after creation")
	}
	return nil
}

// HasSigner checks membership in the snapshotted signer set.
func (tx *Transaction) HasSigner(pub crypto.PublicKey) bool {
	for _, s := range tx.Signers {
		if s.Equals(pub) {
			return true
		}
	}
	return false
}

// SignedBy checks if the signer already contributed a signature.
func (tx *Transaction) SignedBy(pub crypto.PublicKey) bool {
	for _, sig := range tx.Signatures {
		if sig.Signer.Equals(pub) {
			return true
		}
	}
	return false
}

// Copy returns an independent copy.
func (tx *Transaction) Copy() *Transaction {
	signers := make([]crypto.PublicKey, len(tx.Signers))
	for i, s := range tx.Signers {
		signers[i] = append(crypto.PublicKey(nil), s...)
	}
	var sigs []StdSignature
	if tx.Signatures != nil {
		sigs = make([]StdSignature, len(tx.Signatures))
		for i, s := range tx.Signatures {
			sigs[i] = StdSignature{
				Signer:    append(crypto.PublicKey(nil), s.Signer...),
				Signature: append([]byte(nil), s.Signature...),
				SignedAt:  s.SignedAt,
			}
		}
	}
	cp := *tx
	cp.Destination = tx.Destination.Clone()
	cp.Data = append([]byte(nil), tx.Data...)
	cp.Signers = signers
	cp.Signatures = sigs
	return &cp
}
