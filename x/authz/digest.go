package authz

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/vaultsig/vaultsig/errors"
)

// signBytesVersion tags the digest layout so a future format change can
// never collide with signatures produced under the current one.
var signBytesVersion = []byte{0, 0xCA, 0xFE, 1}

// SignBytes assembles the canonical byte string a signer commits to. Every
// field that affects what gets broadcast is bound: chain, nonce,
// destination, amount, and payload data.
func (tx *Transaction) SignBytes() ([]byte, error) {
	if len(tx.ChainID) == 0 || len(tx.ChainID) > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "chain id length %d", len(tx.ChainID))
	}
	if err := tx.Destination.Validate(); err != nil {
		return nil, errors.Wrap(err, "destination")
	}

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, tx.Nonce)

	value := tx.Amount.String()

	// version | len(chainID) | chainID | nonce | destination | value | data
	out := make([]byte, 0, len(signBytesVersion)+1+len(tx.ChainID)+8+
		len(tx.Destination)+len(value)+len(tx.Data))
	out = append(out, signBytesVersion...)
	out = append(out, uint8(len(tx.ChainID)))
	out = append(out, tx.ChainID...)
	out = append(out, nonce...)
	out = append(out, tx.Destination...)
	out = append(out, value...)
	out = append(out, tx.Data...)
	return out, nil
}

// Digest returns the sha512 hash of the canonical sign bytes. This is the
// message signers sign and the verifier checks.
func (tx *Transaction) Digest() ([]byte, error) {
	raw, err := tx.SignBytes()
	if err != nil {
		return nil, err
	}
	sum := sha512.Sum512(raw)
	return sum[:], nil
}
