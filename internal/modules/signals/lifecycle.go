package signals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/events"
)

// Lifecycle owns the signal state machine. No other component mutates
// signal status except through it (the execution service commits the
// queued -> executed step via the repository's compare-and-set, which
// Lifecycle exposes through Repo()).
type Lifecycle struct {
	repo   *Repository
	events *events.Manager
	log    zerolog.Logger
}

// NewLifecycle creates a new signal lifecycle service
func NewLifecycle(repo *Repository, ev *events.Manager, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{
		repo:   repo,
		events: ev,
		log:    log.With().Str("service", "signal_lifecycle").Logger(),
	}
}

// Repo exposes the underlying repository for transactional composition
func (l *Lifecycle) Repo() *Repository {
	return l.repo
}

// Create validates and stores a new queued signal
func (l *Lifecycle) Create(ctx context.Context, userID string, req CreateSignalRequest) (*Signal, error) {
	side, _ := domain.SignalSideFromString(req.Side)

	sig := &Signal{
		ID:         uuid.NewString(),
		UserID:     userID,
		Symbol:     req.Symbol,
		Side:       side,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		Confidence: req.Confidence,
		Status:     domain.SignalQueued,
		CreatedAt:  time.Now().UTC(),
	}

	if err := sig.Validate(); err != nil {
		return nil, err
	}

	if err := l.repo.Create(ctx, sig); err != nil {
		return nil, err
	}

	l.events.Emit(events.SignalCreated, "signals", map[string]interface{}{
		"signal_id": sig.ID,
		"symbol":    sig.Symbol,
		"side":      string(sig.Side),
	})

	return sig, nil
}

// EnsureExecutable checks that a signal may be handed to the execution
// simulator. Terminal signals fail with ErrInvalidState: retrying an
// already-executed signal is a no-op error, never a second execution.
func (l *Lifecycle) EnsureExecutable(sig *Signal) error {
	if sig.Status != domain.SignalQueued {
		return fmt.Errorf("signal %s has status %s, want queued: %w",
			sig.ID, sig.Status, domain.ErrInvalidState)
	}
	return nil
}

// Reject transitions a queued signal to rejected, recording the reason
func (l *Lifecycle) Reject(ctx context.Context, id string, reason string) error {
	if err := l.repo.MarkRejected(ctx, id, reason); err != nil {
		return err
	}

	l.events.Emit(events.SignalRejected, "signals", map[string]interface{}{
		"signal_id": id,
		"reason":    reason,
	})
	return nil
}

// Cancel transitions a queued signal to cancelled
func (l *Lifecycle) Cancel(ctx context.Context, id string) error {
	if err := l.repo.MarkCancelled(ctx, id); err != nil {
		return err
	}

	l.events.Emit(events.SignalCancelled, "signals", map[string]interface{}{
		"signal_id": id,
	})
	return nil
}
