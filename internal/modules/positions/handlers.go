package positions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/identity"
)

// Handlers contains HTTP handlers for the positions API
type Handlers struct {
	ledger *Ledger
	log    zerolog.Logger
}

// NewHandlers creates a new positions handlers instance
func NewHandlers(ledger *Ledger, log zerolog.Logger) *Handlers {
	return &Handlers{
		ledger: ledger,
		log:    log.With().Str("handler", "positions").Logger(),
	}
}

// HandleMark runs a mark-to-market pass for the caller's open positions
// POST /api/positions/mark
func (h *Handlers) HandleMark(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	result, err := h.ledger.MarkToMarket(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Mark-to-market failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleList returns the caller's positions
// GET /api/positions?status=open
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	list, err := h.ledger.Repo().ListByUser(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list positions")
		h.writeError(w, err)
		return
	}

	if list == nil {
		list = []Position{}
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleClose settles a position
// POST /api/positions/{id}/close
func (h *Handlers) HandleClose(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	positionID := chi.URLParam(r, "id")

	var req ClosePositionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, errors.Join(domain.ErrValidation, err))
			return
		}
	}

	pos, err := h.ledger.Close(r.Context(), userID, positionID, req.ExitPrice)
	if err != nil {
		h.log.Warn().Err(err).Str("position_id", positionID).Msg("Failed to close position")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, pos)
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
