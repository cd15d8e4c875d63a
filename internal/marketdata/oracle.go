// Package marketdata provides access to current reference prices.
package marketdata

import "context"

// Oracle returns the current reference price for an asset symbol.
// Implementations may be unavailable; callers handle the error and
// decide on fallbacks.
type Oracle interface {
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}
