package guard

import "errors"

// Failure modes for mutating guard operations. Every failed call aborts
// with one of these and zero persisted effect.
var (
	// ErrUnauthorized rejects callers that are neither owner nor trigger
	// (or non-owners on administrative operations).
	ErrUnauthorized = errors.New("guard: unauthorized")
	// ErrHalted rejects the protected withdrawal while paused.
	ErrHalted = errors.New("guard: halted")
	// ErrInsufficientFunds rejects withdrawals when the resolved amount is
	// zero or exceeds the held balance.
	ErrInsufficientFunds = errors.New("guard: insufficient funds")
	// ErrInvalidArgument rejects null identities and non-positive credits.
	ErrInvalidArgument = errors.New("guard: invalid argument")
)
