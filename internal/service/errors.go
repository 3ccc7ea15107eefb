package service

import "errors"

var (
	// Validation failures. Surfaced to the caller before any persistence.
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrAmountBelowMinimum = errors.New("amount is below the deposit minimum")
	ErrInvalidDestination = errors.New("destination is not whitelisted")
	ErrUnsupportedMethod  = errors.New("unsupported deposit method")

	ErrPaymentNotFound = errors.New("payment not found")

	// ErrUpstreamProvider wraps gateway checkout failures. The locally
	// created PENDING row is deliberately kept for later reconciliation.
	ErrUpstreamProvider = errors.New("payment provider unavailable")

	// ErrNotCancellable is returned when a cancel request targets a
	// payment that already left PENDING.
	ErrNotCancellable = errors.New("payment is not pending")
)
