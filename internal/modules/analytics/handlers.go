package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/identity"
)

// Handlers contains HTTP handlers for the analytics API
type Handlers struct {
	engine    *Engine
	suggester *Suggester
	log       zerolog.Logger
}

// NewHandlers creates a new analytics handlers instance
func NewHandlers(engine *Engine, suggester *Suggester, log zerolog.Logger) *Handlers {
	return &Handlers{
		engine:    engine,
		suggester: suggester,
		log:       log.With().Str("handler", "analytics").Logger(),
	}
}

// HandleRisk returns the analytics bundle for the caller's trade window
// GET /api/analytics/risk?window_days=30
func (h *Handlers) HandleRisk(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	windowDays := DefaultWindowDays
	if param := r.URL.Query().Get("window_days"); param != "" {
		if parsed, err := strconv.Atoi(param); err == nil && parsed > 0 {
			windowDays = parsed
		}
	}

	result, err := h.engine.Analyze(r.Context(), userID, windowDays)
	if err != nil {
		h.log.Error().Err(err).Msg("Analytics computation failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

// HandleTPSL returns stop-loss / take-profit bands for a symbol
// GET /api/analytics/tpsl/{symbol}
func (h *Handlers) HandleTPSL(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.UserID(r.Context()); !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	suggestion, err := h.suggester.Suggest(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		h.log.Error().Err(err).Msg("TP/SL suggestion failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, suggestion)
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
