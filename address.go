package vaultsig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/vaultsig/vaultsig/errors"
)

// AddressLength is the length of all addresses in bytes. It must not change
// during the lifetime of a store as persisted keys depend on it.
const AddressLength = 20

// Address identifies an account on a chain. It is derived from key material
// or wallet configuration by hashing, never constructed from raw user input.
type Address []byte

// NewAddress hashes given data into an address. A nil input produces a nil
// address.
func NewAddress(data []byte) Address {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:AddressLength]
}

// ParseAddress decodes a hex encoded address representation.
func ParseAddress(enc string) (Address, error) {
	// Accept the usual 0x prefix to be lenient with external input.
	enc = strings.TrimPrefix(enc, "0x")
	raw, err := hex.DecodeString(enc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, "hex decode")
	}
	a := Address(raw)
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Clone returns an independent copy of this address.
func (a Address) Clone() Address {
	if a == nil {
		return nil
	}
	cpy := make(Address, len(a))
	copy(cpy, a)
	return cpy
}

// Equals checks if two addresses are the same.
func (a Address) Equals(b Address) bool {
	return bytes.Equal(a, b)
}

// Validate returns an error if the address is not the proper size.
func (a Address) Validate() error {
	if len(a) != AddressLength {
		return errors.Wrapf(errors.ErrInput, "address length %d", len(a))
	}
	return nil
}

func (a Address) String() string {
	if len(a) == 0 {
		return "(nil)"
	}
	return strings.ToUpper(hex.EncodeToString(a))
}

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(a))
}

func (a *Address) UnmarshalJSON(raw []byte) error {
	var enc string
	if err := json.Unmarshal(raw, &enc); err != nil {
		return err
	}
	if enc == "" {
		*a = nil
		return nil
	}
	val, err := hex.DecodeString(enc)
	if err != nil {
		return errors.Wrap(errors.ErrInput, "hex decode")
	}
	*a = val
	return nil
}
