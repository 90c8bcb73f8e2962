package errors

import "errors"

// Common error types for the marketplace client
var (
	// Session errors
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrNoSession      = errors.New("no active session")

	// Cart/checkout errors
	ErrEmptyCart        = errors.New("cart is empty")
	ErrProductMissingID = errors.New("product is missing a valid id")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)
