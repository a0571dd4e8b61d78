package limits

import (
	"github.com/vaultsig/vaultsig/errors"
)

// ErrLimitExceeded is returned when a reservation would push the cumulative
// spend of a wallet over its daily or monthly limit.
var ErrLimitExceeded = errors.Register(1300, "spending limit exceeded")
