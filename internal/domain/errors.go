package domain

import (
	"errors"
	"net/http"
)

// Sentinel errors shared across modules. Repositories and services wrap
// these with fmt.Errorf("...: %w", err) so handlers can classify any
// failure with errors.Is.
var (
	// ErrNotFound - the referenced signal/position/portfolio does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidState - the record exists but is not in a state that
	// permits the operation (signal not queued, position not open)
	ErrInvalidState = errors.New("invalid state")

	// ErrNoPriceAvailable - the price oracle returned nothing and no
	// fallback reference price exists
	ErrNoPriceAvailable = errors.New("no price available")

	// ErrPersistence - a store read or write failed
	ErrPersistence = errors.New("persistence failure")

	// ErrValidation - malformed caller input
	ErrValidation = errors.New("validation failure")

	// ErrAuthentication - the caller credential did not resolve to a user
	ErrAuthentication = errors.New("authentication failure")
)

// HTTPStatus maps a domain error to its HTTP status code.
// Unclassified errors are treated as persistence failures.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrNoPriceAvailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may safely resubmit the same
// operation. Input problems are final; infrastructure problems are not.
func Retryable(err error) bool {
	return errors.Is(err, ErrNoPriceAvailable) || errors.Is(err, ErrPersistence)
}
