package common

import "errors"

// Error kinds surfaced across the submit, cancel, and recovery paths.
// InvalidOrder propagates to the caller directly; OrderNotFound is
// reported by Cancel returning false rather than as a Go error;
// OrderExpired is reported through SubmitResult.Status rather than as
// a Go error, matching the "silently accept expired orders with zero
// fill" contract. RecoveryCorruption and PersistenceFailure are logged,
// not returned, since in-memory state stays authoritative either way.
var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderExpired       = errors.New("order expired")
	ErrRecoveryCorruption = errors.New("recovery corruption")
	ErrPersistenceFailure = errors.New("persistence failure")
)
