package execution

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/identity"
)

// Handlers contains HTTP handlers for signal execution
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new execution handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("handler", "execution").Logger(),
	}
}

// HandleExecute executes a queued signal
// POST /api/signals/{id}/execute
func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	signalID := chi.URLParam(r, "id")

	resp, err := h.service.ExecuteSignal(r.Context(), userID, signalID)
	if err != nil {
		h.log.Warn().Err(err).Str("signal_id", signalID).Msg("Signal execution failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
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
