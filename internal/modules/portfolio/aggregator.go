package portfolio

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/modules/positions"
)

// Aggregator recomputes portfolio totals from ledger state. It must
// run after the position ledger has finished marking the user's
// positions; callers own that sequencing.
type Aggregator struct {
	repo    *Repository
	posRepo *positions.Repository
	events  *events.Manager
	log     zerolog.Logger
}

// NewAggregator creates a new portfolio aggregator
func NewAggregator(repo *Repository, posRepo *positions.Repository, ev *events.Manager, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		repo:    repo,
		posRepo: posRepo,
		events:  ev,
		log:     log.With().Str("service", "portfolio_aggregator").Logger(),
	}
}

// Repo exposes the underlying repository for handler composition
func (a *Aggregator) Repo() *Repository {
	return a.repo
}

// Create opens a new portfolio for a user with equal initial and
// current balance.
func (a *Aggregator) Create(ctx context.Context, userID string, initialBalance float64) (*Portfolio, error) {
	p := &Portfolio{
		ID:             uuid.NewString(),
		UserID:         userID,
		InitialBalance: initialBalance,
		CurrentBalance: initialBalance,
		TotalPnL:       0,
		UpdatedAt:      time.Now().UTC(),
	}

	if err := a.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Recompute derives total P&L from current state:
//
//	total_pnl = (current_balance + sum of open-position value) - initial_balance
//
// and persists it. The value is a pure function of ledger state, so
// recomputation can never drift.
func (a *Aggregator) Recompute(ctx context.Context, portfolioID string) (*Portfolio, error) {
	p, err := a.repo.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	open, err := a.posRepo.OpenByUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}

	var openValue float64
	for i := range open {
		openValue += open[i].CurrentValue()
	}

	p.TotalPnL = p.CurrentBalance + openValue - p.InitialBalance
	p.UpdatedAt = time.Now().UTC()

	if err := a.repo.UpdateTotalPnL(ctx, p.ID, p.TotalPnL, p.UpdatedAt); err != nil {
		return nil, err
	}

	a.log.Debug().
		Str("portfolio_id", p.ID).
		Float64("open_value", openValue).
		Float64("total_pnl", p.TotalPnL).
		Msg("Portfolio recomputed")

	a.events.Emit(events.PortfolioRecomputed, "portfolio", map[string]interface{}{
		"portfolio_id": p.ID,
		"total_pnl":    p.TotalPnL,
	})

	return p, nil
}

// RecomputeAllForUser recomputes each of a user's portfolios, isolating
// per-portfolio failures. Returns the number recomputed successfully.
func (a *Aggregator) RecomputeAllForUser(ctx context.Context, userID string) (int, error) {
	list, err := a.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	recomputed := 0
	for i := range list {
		if _, err := a.Recompute(ctx, list[i].ID); err != nil {
			a.log.Warn().
				Err(err).
				Str("portfolio_id", list[i].ID).
				Msg("Skipping portfolio in recompute pass")
			continue
		}
		recomputed++
	}

	return recomputed, nil
}
