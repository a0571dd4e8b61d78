package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"

	vaultsig "github.com/vaultsig/vaultsig"
)

// walletAddressTag versions the wallet address derivation scheme. Changing
// the encoding below requires a new tag, otherwise previously derived
// addresses silently stop matching.
var walletAddressTag = []byte("vaultsig/wallet/v1")

// Deriver computes a deterministic wallet address from the wallet
// configuration. It is a pluggable collaborator so deployments can match
// the address scheme of their target chain.
type Deriver func(owners []PublicKey, threshold int32, chainID string) vaultsig.Address

// WalletAddress is the default Deriver. The owner set is sorted before
// hashing so the same set of keys always yields the same address regardless
// of declaration order.
func WalletAddress(owners []PublicKey, threshold int32, chainID string) vaultsig.Address {
	sorted := make([]PublicKey, len(owners))
	copy(sorted, owners)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i]) < string(sorted[j])
	})

	h := sha256.New()
	h.Write(walletAddressTag)
	h.Write([]byte{uint8(len(chainID))})
	h.Write([]byte(chainID))

	var thr [4]byte
	binary.BigEndian.PutUint32(thr[:], uint32(threshold))
	h.Write(thr[:])

	for _, pub := range sorted {
		h.Write([]byte{uint8(len(pub))})
		h.Write(pub)
	}

	return vaultsig.NewAddress(h.Sum(nil))
}
