package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradewind/papertrader/internal/domain"
)

func TestStaticProvider_Resolve(t *testing.T) {
	provider := NewStaticProvider(map[string]string{
		"secret-key-1": "user-1",
		"secret-key-2": "user-2",
	})

	userID, err := provider.Resolve(context.Background(), "secret-key-2")
	require.NoError(t, err)
	assert.Equal(t, "user-2", userID)

	_, err = provider.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	_, err = provider.Resolve(context.Background(), "wrong-key")
	assert.ErrorIs(t, err, domain.ErrAuthentication)

	// Same length as a valid key but different content
	_, err = provider.Resolve(context.Background(), "secret-key-X")
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestMiddleware(t *testing.T) {
	provider := NewStaticProvider(map[string]string{"valid-key": "user-1"})
	log := zerolog.New(nil).Level(zerolog.Disabled)

	var capturedUserID string
	var capturedOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID, capturedOK = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(provider, log)(next)

	tests := []struct {
		name       string
		header     string
		value      string
		wantStatus int
		wantUser   string
	}{
		{"x-api-key header", "X-API-Key", "valid-key", http.StatusOK, "user-1"},
		{"bearer token", "Authorization", "Bearer valid-key", http.StatusOK, "user-1"},
		{"missing credential", "", "", http.StatusUnauthorized, ""},
		{"unknown key", "X-API-Key", "bogus", http.StatusUnauthorized, ""},
		{"malformed authorization", "Authorization", "Basic valid-key", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capturedUserID, capturedOK = "", false

			req := httptest.NewRequest(http.MethodGet, "/api/signals", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.True(t, capturedOK)
				assert.Equal(t, tt.wantUser, capturedUserID)
			} else {
				assert.False(t, capturedOK)
				assert.JSONEq(t, `{"error":"invalid or missing API key"}`, rec.Body.String())
			}
		})
	}
}

func TestUserID_AbsentFromContext(t *testing.T) {
	_, ok := UserID(context.Background())
	assert.False(t, ok)

	id, ok := UserID(WithUserID(context.Background(), "user-9"))
	assert.True(t, ok)
	assert.Equal(t, "user-9", id)
}
