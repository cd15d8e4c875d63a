package execution

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/marketdata"
	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/internal/modules/signals"
)

// ExecuteSignalResponse pairs the fill result with the updated signal
type ExecuteSignalResponse struct {
	Signal   *signals.Signal     `json:"signal"`
	Position *positions.Position `json:"position"`
}

// Service orchestrates signal execution: eligibility, price
// resolution, fill simulation, and the atomic commit.
type Service struct {
	db        *sql.DB
	lifecycle *signals.Lifecycle
	posRepo   *positions.Repository
	oracle    marketdata.Oracle
	sim       *Simulator
	events    *events.Manager
	log       zerolog.Logger
}

// NewService creates a new execution service
func NewService(
	db *sql.DB,
	lifecycle *signals.Lifecycle,
	posRepo *positions.Repository,
	oracle marketdata.Oracle,
	sim *Simulator,
	ev *events.Manager,
	log zerolog.Logger,
) *Service {
	return &Service{
		db:        db,
		lifecycle: lifecycle,
		posRepo:   posRepo,
		oracle:    oracle,
		sim:       sim,
		events:    ev,
		log:       log.With().Str("service", "execution").Logger(),
	}
}

// ExecuteSignal executes a queued signal at most once.
//
// "Flip signal status + create position" commits as one SQLite
// transaction whose commit point is the compare-and-set on signal
// status. Two concurrent calls on the same signal id race on that
// UPDATE: the loser sees zero affected rows and fails with
// InvalidState, so retried calls can never produce a second position.
func (s *Service) ExecuteSignal(ctx context.Context, userID, signalID string) (*ExecuteSignalResponse, error) {
	sig, err := s.lifecycle.Repo().GetByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if sig.UserID != userID {
		return nil, fmt.Errorf("signal %s: %w", signalID, domain.ErrNotFound)
	}

	if err := s.lifecycle.EnsureExecutable(sig); err != nil {
		return nil, err
	}

	refPrice, err := s.resolveReferencePrice(ctx, sig)
	if err != nil {
		// No market data means the signal cannot fill; that is a
		// terminal outcome for the signal, not a transient one.
		if rejectErr := s.lifecycle.Reject(ctx, signalID, "no price available"); rejectErr != nil {
			s.log.Warn().Err(rejectErr).Str("signal_id", signalID).Msg("Failed to reject signal")
		}
		return nil, err
	}

	now := time.Now().UTC()
	pos := s.sim.BuildPosition(sig, refPrice, now)

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		won, err := s.lifecycle.Repo().MarkExecutedTx(tx, signalID, now)
		if err != nil {
			return err
		}
		if !won {
			return fmt.Errorf("signal %s already left queued state: %w", signalID, domain.ErrInvalidState)
		}
		return s.posRepo.InsertTx(tx, pos)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("signal_id", signalID).
		Str("position_id", pos.ID).
		Str("symbol", pos.Symbol).
		Float64("reference_price", refPrice).
		Float64("entry_price", pos.EntryPrice).
		Msg("Signal executed")

	s.events.Emit(events.SignalExecuted, "execution", map[string]interface{}{
		"signal_id":   signalID,
		"position_id": pos.ID,
		"entry_price": pos.EntryPrice,
	})

	executed, err := s.lifecycle.Repo().GetByID(ctx, signalID)
	if err != nil {
		return nil, err
	}

	return &ExecuteSignalResponse{Signal: executed, Position: pos}, nil
}

// resolveReferencePrice asks the oracle first and falls back to the
// signal's limit price; with neither available the execution fails
// with NoPriceAvailable.
func (s *Service) resolveReferencePrice(ctx context.Context, sig *signals.Signal) (float64, error) {
	price, err := s.oracle.GetCurrentPrice(ctx, sig.Symbol)
	if err == nil && price > 0 {
		return price, nil
	}

	if sig.LimitPrice != nil && *sig.LimitPrice > 0 {
		s.log.Debug().
			Str("signal_id", sig.ID).
			Float64("limit_price", *sig.LimitPrice).
			Msg("Oracle unavailable, using limit price as reference")
		return *sig.LimitPrice, nil
	}

	return 0, fmt.Errorf("no oracle price and no limit price for %s: %w",
		sig.Symbol, domain.ErrNoPriceAvailable)
}
