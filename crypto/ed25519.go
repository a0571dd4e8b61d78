package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/ed25519"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/errors"
)

// PublicKey is a raw ed25519 public key. It is the identity of an owner
// within a wallet.
type PublicKey []byte

// PrivateKey is a raw ed25519 private key. This subsystem never persists
// private keys, the type exists for signing in tests and tooling.
type PrivateKey []byte

// Verify verifies the signature was created with this message and public
// key. Malformed key or signature material is a verification failure, not a
// panic.
func (p PublicKey) Verify(message []byte, sig []byte) bool {
	if len(p) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(p), message, sig)
}

// Address derives the account address for this public key.
func (p PublicKey) Address() vaultsig.Address {
	return vaultsig.NewAddress(p)
}

// Equals checks if two public keys carry the same key material.
func (p PublicKey) Equals(o PublicKey) bool {
	return bytes.Equal(p, o)
}

// Validate returns an error if the key is not the proper size.
func (p PublicKey) Validate() error {
	if len(p) != ed25519.PublicKeySize {
		return errors.Wrapf(errors.ErrInput, "public key length %d", len(p))
	}
	return nil
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p)
}

func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p))
}

func (p *PublicKey) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return err
	}
	val, err := hex.DecodeString(enc)
	if err != nil {
		return errors.Wrap(errors.ErrInput, "hex decode")
	}
	*p = val
	return nil
}

// Sign returns a matching signature for this private key.
func (p PrivateKey) Sign(message []byte) ([]byte, error) {
	if len(p) != ed25519.PrivateKeySize {
		return nil, errors.Wrapf(errors.ErrInput, "private key length %d", len(p))
	}
	return ed25519.Sign(ed25519.PrivateKey(p), message), nil
}

// PublicKey returns the corresponding PublicKey.
func (p PrivateKey) PublicKey() PublicKey {
	pub := ed25519.PrivateKey(p).Public().(ed25519.PublicKey)
	return PublicKey(pub)
}

// GenPrivateKey returns a random new private key.
func GenPrivateKey() PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		panic(err)
	}
	return PrivateKey(priv)
}

// PrivateKeyFromSeed will deterministically generate a private key from a
// given seed. Use if you have a strong source of external randomness, or
// for deterministic keys in test cases.
func PrivateKeyFromSeed(seed []byte) PrivateKey {
	return PrivateKey(ed25519.NewKeyFromSeed(seed))
}
