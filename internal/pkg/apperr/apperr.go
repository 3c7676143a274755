package apperr

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidSeed marks a transaction sequence that does not begin with a
	// valid create_seed. Seeds in this state are excluded from derived views.
	ErrInvalidSeed = errors.New("invalid seed: ledger must begin with create_seed")
	// ErrUnknownTransactionType is a projection-level bug signal. It is never
	// swallowed: silently dropping an unknown type would corrupt derived state.
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	// ErrMalformedPayload marks a transaction payload that fails its
	// type-specific shape validation. Rejected before persistence.
	ErrMalformedPayload = errors.New("malformed transaction payload")
)
