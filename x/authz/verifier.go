package authz

import (
	"github.com/vaultsig/vaultsig/crypto"
)

// Verifier checks a signature over a transaction digest. Implementations
// must be stateless and safe for concurrent use.
type Verifier interface {
	Verify(digest []byte, signer crypto.PublicKey, sig []byte) bool
}

// Ed25519Verifier verifies raw ed25519 signatures. Malformed keys or
// signatures fail verification instead of panicking.
type Ed25519Verifier struct{}

var _ Verifier = Ed25519Verifier{}

func (Ed25519Verifier) Verify(digest []byte, signer crypto.PublicKey, sig []byte) bool {
	return signer.Verify(digest, sig)
}
