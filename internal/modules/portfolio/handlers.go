package portfolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/identity"
)

// Handlers contains HTTP handlers for the portfolio API
type Handlers struct {
	aggregator *Aggregator
	log        zerolog.Logger
}

// NewHandlers creates a new portfolio handlers instance
func NewHandlers(aggregator *Aggregator, log zerolog.Logger) *Handlers {
	return &Handlers{
		aggregator: aggregator,
		log:        log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleCreate opens a new portfolio for the caller
// POST /api/portfolios
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return
	}

	var req CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.Join(domain.ErrValidation, err))
		return
	}
	if req.InitialBalance <= 0 {
		h.writeError(w, fmt.Errorf("initial_balance must be positive: %w", domain.ErrValidation))
		return
	}

	p, err := h.aggregator.Create(r.Context(), userID, req.InitialBalance)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create portfolio")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

// HandleGet returns a portfolio
// GET /api/portfolios/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleRecompute recomputes a portfolio's totals from ledger state
// POST /api/portfolios/{id}/recompute
func (h *Handlers) HandleRecompute(w http.ResponseWriter, r *http.Request) {
	p, ok := h.ownedPortfolio(w, r)
	if !ok {
		return
	}

	updated, err := h.aggregator.Recompute(r.Context(), p.ID)
	if err != nil {
		h.log.Error().Err(err).Str("portfolio_id", p.ID).Msg("Recompute failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, updated)
}

// ownedPortfolio loads the portfolio in the URL and verifies the caller
// owns it; foreign portfolios are indistinguishable from absent ones.
func (h *Handlers) ownedPortfolio(w http.ResponseWriter, r *http.Request) (*Portfolio, bool) {
	userID, ok := identity.UserID(r.Context())
	if !ok {
		h.writeError(w, domain.ErrAuthentication)
		return nil, false
	}

	id := chi.URLParam(r, "id")
	p, err := h.aggregator.Repo().GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	if p.UserID != userID {
		h.writeError(w, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound))
		return nil, false
	}

	return p, true
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
