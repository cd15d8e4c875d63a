package positions

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/marketdata"
	"github.com/tradewind/papertrader/internal/modules/history"
)

// Ledger marks open positions to the latest market price.
type Ledger struct {
	repo        *Repository
	historyRepo *history.Repository
	oracle      marketdata.Oracle
	events      *events.Manager
	concurrency int
	log         zerolog.Logger
}

// NewLedger creates a new position ledger service
func NewLedger(
	repo *Repository,
	historyRepo *history.Repository,
	oracle marketdata.Oracle,
	ev *events.Manager,
	concurrency int,
	log zerolog.Logger,
) *Ledger {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Ledger{
		repo:        repo,
		historyRepo: historyRepo,
		oracle:      oracle,
		events:      ev,
		concurrency: concurrency,
		log:         log.With().Str("service", "position_ledger").Logger(),
	}
}

// Repo exposes the underlying repository for handler composition
func (l *Ledger) Repo() *Repository {
	return l.repo
}

// MarkToMarket refreshes current price and unrealized P&L for every
// open position of a user. Per-position work fans out through an
// errgroup with bounded concurrency; individual failures are logged
// and counted, never aborting the batch. The method returns only after
// every goroutine has joined, so a caller may aggregate portfolios
// immediately afterwards.
//
// The operation is idempotent: re-marking with an unchanged oracle
// price leaves current_price and unrealized_pnl identical.
func (l *Ledger) MarkToMarket(ctx context.Context, userID string) (MarkToMarketResponse, error) {
	open, err := l.repo.OpenByUser(ctx, userID)
	if err != nil {
		return MarkToMarketResponse{}, err
	}

	var updated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i := range open {
		pos := open[i]
		g.Go(func() error {
			if err := l.markOne(gctx, &pos); err != nil {
				l.log.Warn().
					Err(err).
					Str("position_id", pos.ID).
					Str("symbol", pos.Symbol).
					Msg("Skipping position in mark batch")
				return nil // isolated: one bad position never aborts the batch
			}
			updated.Add(1)
			return nil
		})
	}

	// Join point: every mark completes or fails before we report.
	_ = g.Wait()

	result := MarkToMarketResponse{
		UpdatedCount:   int(updated.Load()),
		AttemptedCount: len(open),
	}

	l.events.Emit(events.PositionsMarked, "positions", map[string]interface{}{
		"user_id":         userID,
		"updated_count":   result.UpdatedCount,
		"attempted_count": result.AttemptedCount,
	})

	return result, nil
}

func (l *Ledger) markOne(ctx context.Context, pos *Position) error {
	price, err := l.oracle.GetCurrentPrice(ctx, pos.Symbol)
	if err != nil {
		return fmt.Errorf("price fetch: %w", err)
	}

	now := time.Now().UTC()
	pos.ApplyMark(price)

	if err := l.repo.UpdateMark(ctx, pos.ID, pos.CurrentPrice, pos.UnrealizedPnL, now); err != nil {
		return fmt.Errorf("store write: %w", err)
	}

	// History capture feeds the TP/SL suggester; a failure here does
	// not invalidate the mark itself.
	if err := l.historyRepo.Record(ctx, pos.Symbol, price, now); err != nil {
		l.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("Failed to record price history")
	}

	return nil
}

// Close settles an open position. When exitPrice is nil the current
// oracle price is used; if the oracle fails too the close surfaces
// NoPriceAvailable rather than inventing a settlement price.
func (l *Ledger) Close(ctx context.Context, userID, positionID string, exitPrice *float64) (*Position, error) {
	pos, err := l.repo.GetByID(ctx, positionID)
	if err != nil {
		return nil, err
	}
	if pos.UserID != userID {
		return nil, fmt.Errorf("position %s: %w", positionID, domain.ErrNotFound)
	}
	if pos.Status != domain.PositionOpen {
		return nil, fmt.Errorf("position %s is already closed: %w", positionID, domain.ErrInvalidState)
	}

	price := 0.0
	if exitPrice != nil {
		price = *exitPrice
	} else {
		price, err = l.oracle.GetCurrentPrice(ctx, pos.Symbol)
		if err != nil {
			return nil, err
		}
	}
	if price <= 0 {
		return nil, fmt.Errorf("exit price must be positive: %w", domain.ErrValidation)
	}

	realized := pos.PnLAt(price)
	now := time.Now().UTC()

	if err := l.repo.Close(ctx, positionID, price, realized, now); err != nil {
		return nil, err
	}

	l.events.Emit(events.PositionClosed, "positions", map[string]interface{}{
		"position_id":  positionID,
		"symbol":       pos.Symbol,
		"realized_pnl": realized,
	})

	return l.repo.GetByID(ctx, positionID)
}
