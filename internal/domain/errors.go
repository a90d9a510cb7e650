package domain

import "errors"

// Domain errors
var (
	// Validation errors
	ErrInvalidProductID = errors.New("invalid product id")
	ErrInvalidUnitPrice = errors.New("unit price cannot be negative")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrInvalidRole      = errors.New("invalid role")
	ErrInvalidStatus    = errors.New("invalid order status")

	// Order errors
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidProductID) ||
		errors.Is(err, ErrInvalidUnitPrice) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidRole) ||
		errors.Is(err, ErrInvalidStatus)
}
