package domain

import "github.com/pkg/errors"

// Error kinds. Components wrap these with a human-readable message and callers
// classify failures with errors.Is.
var (
	// ErrValidation missing or malformed input.
	ErrValidation = errors.New("invalid request")
	// ErrUnauthenticated bad credentials or a missing, invalid or expired token.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrConflict unique identity already taken.
	ErrConflict = errors.New("already exists")
	// ErrInsufficientFunds paper balance does not cover a debit.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrNotFound requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable the external market data source failed.
	ErrUpstreamUnavailable = errors.New("market data unavailable")
)
