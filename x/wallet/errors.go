package wallet

import (
	"github.com/vaultsig/vaultsig/errors"
)

// Error codes 1100-1109 are reserved for the wallet package.
var (
	// ErrConfiguration is returned when a wallet configuration is
	// invalid: empty or oversized owner set, threshold out of range,
	// missing chain id, or inconsistent limits.
	ErrConfiguration = errors.Register(1100, "invalid configuration")

	// ErrDisabled is returned when an operation requires an enabled
	// wallet.
	ErrDisabled = errors.Register(1101, "wallet disabled")
)
