package authz

import (
	"github.com/vaultsig/vaultsig/errors"
)

// Error codes 1200-1299 are reserved for the authz package.
var (
	// ErrNotReady is returned when execution is requested before the
	// signature threshold is met.
	ErrNotReady = errors.Register(1200, "transaction not ready")

	// ErrAlreadySigned is returned when a signer submits a second
	// signature for the same transaction.
	ErrAlreadySigned = errors.Register(1201, "already signed")

	// ErrInvalidSignature is returned when a signature does not verify
	// against the transaction digest.
	ErrInvalidSignature = errors.Register(1202, "invalid signature")

	// ErrAlreadyFinalized is returned when an operation targets a
	// transaction in a terminal state.
	ErrAlreadyFinalized = errors.Register(1203, "already finalized")

	// ErrExecutionFailed is returned when broadcasting fails or an
	// execution is already in flight. The transaction stays READY and the
	// call may be retried.
	ErrExecutionFailed = errors.Register(1204, "execution failed")

	// ErrDestinationNotAllowed is returned when the destination is not on
	// the wallet's allow-list.
	ErrDestinationNotAllowed = errors.Register(1205, "destination not allowed")

	// ErrUnauthorizedSigner is returned when the acting identity is not
	// in the transaction's signer set.
	ErrUnauthorizedSigner = errors.Register(1206, "unauthorized signer")

	// ErrRateLimited is returned when transaction creation exceeds the
	// configured rate.
	ErrRateLimited = errors.Register(1207, "rate limited")
)
