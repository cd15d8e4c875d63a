// Package identity resolves caller credentials to verified user ids.
// The core consumes a Provider; it never implements authentication
// itself beyond the static key map used for local deployments.
package identity

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/tradewind/papertrader/internal/domain"
)

// Provider resolves a caller credential to a user id
type Provider interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// StaticProvider resolves credentials from a fixed key -> user map,
// loaded from configuration.
type StaticProvider struct {
	keys map[string]string
}

// NewStaticProvider creates a provider over a key -> user id map
func NewStaticProvider(keys map[string]string) *StaticProvider {
	return &StaticProvider{keys: keys}
}

// Resolve looks up the credential with constant-time comparison
func (p *StaticProvider) Resolve(_ context.Context, credential string) (string, error) {
	if credential == "" {
		return "", fmt.Errorf("empty credential: %w", domain.ErrAuthentication)
	}

	for key, userID := range p.keys {
		if len(key) == len(credential) &&
			subtle.ConstantTimeCompare([]byte(key), []byte(credential)) == 1 {
			return userID, nil
		}
	}

	return "", fmt.Errorf("unknown credential: %w", domain.ErrAuthentication)
}
