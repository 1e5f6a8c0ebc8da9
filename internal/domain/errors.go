package domain

import "errors"

// Sentinel errors shared across layers.
var (
	// ErrUserNotIdentified signals a request without an authenticated caller.
	ErrUserNotIdentified = errors.New("user not identified")
	// ErrUserNotFound signals an unknown user id at the storage layer.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidAmount signals a zero-or-negative grant or a negative cost.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrConfirmationUnavailable signals that no confirmation port was wired
	// for a request that requires one.
	ErrConfirmationUnavailable = errors.New("confirmation unavailable")
	// ErrCatalogReadOnly signals a price update against a read-only catalog.
	ErrCatalogReadOnly = errors.New("catalog is read-only")
)
