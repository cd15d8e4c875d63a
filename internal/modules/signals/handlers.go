package signals

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/identity"
)

// Handlers contains HTTP handlers for the signals API
type Handlers struct {
	lifecycle *Lifecycle
	log       zerolog.Logger
}

// NewHandlers creates a new signals handlers instance
func NewHandlers(lifecycle *Lifecycle, log zerolog.Logger) *Handlers {
	return &Handlers{
		lifecycle: lifecycle,
		log:       log.With().Str("handler", "signals").Logger(),
	}
}

// HandleCreate stores a new queued signal
// POST /api/signals
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	var req CreateSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(domain.ErrValidation, err))
		return
	}

	sig, err := h.lifecycle.Create(r.Context(), userID, req)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to create signal")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, sig)
}

// HandleList returns the caller's signals
// GET /api/signals?status=queued
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	sigs, err := h.lifecycle.Repo().ListByUser(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list signals")
		h.writeError(w, err)
		return
	}

	if sigs == nil {
		sigs = []Signal{}
	}
	h.writeJSON(w, http.StatusOK, sigs)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, domain.HTTPStatus(err), map[string]interface{}{
		"error":     err.Error(),
		"retryable": domain.Retryable(err),
	})
}
