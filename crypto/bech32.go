package crypto

import (
	"github.com/btcsuite/btcutil/bech32"

	vaultsig "github.com/vaultsig/vaultsig"
	"github.com/vaultsig/vaultsig/errors"
)

// Bech32Encode converts given address into its bech32 representation. The
// human readable part is deployment specific, for example "vsig".
func Bech32Encode(hrp string, addr vaultsig.Address) (string, error) {
	if err := addr.Validate(); err != nil {
		return "", errors.Wrap(err, "address")
	}
	payload, err := bech32.ConvertBits(addr, 8, 5, true)
	if err != nil {
		return "", errors.Wrap(err, "convert bits")
	}
	enc, err := bech32.Encode(hrp, payload)
	if err != nil {
		return "", errors.Wrap(err, "bech32 encode")
	}
	return enc, nil
}

// Bech32Decode converts a bech32 encoded representation into a raw address
// and a human readable part.
func Bech32Decode(enc string) (string, vaultsig.Address, error) {
	hrp, payload, err := bech32.Decode(enc)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, "bech32 decode")
	}
	raw, err := bech32.ConvertBits(payload, 5, 8, false)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrInput, "convert bits")
	}
	addr := vaultsig.Address(raw)
	if err := addr.Validate(); err != nil {
		return "", nil, errors.Wrap(err, "address")
	}
	return hrp, addr, nil
}
