package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/events"
	"github.com/tradewind/papertrader/internal/modules/portfolio"
	"github.com/tradewind/papertrader/internal/modules/positions"
)

// sweepTimeout bounds one full sweep pass
const sweepTimeout = 2 * time.Minute

// MarkSweepJob periodically marks every user's open positions to
// market and then recomputes their portfolios. The recompute runs only
// after the user's mark batch has joined.
type MarkSweepJob struct {
	ledger     *positions.Ledger
	aggregator *portfolio.Aggregator
	events     *events.Manager
	log        zerolog.Logger
}

// NewMarkSweepJob creates the periodic mark-to-market job
func NewMarkSweepJob(
	ledger *positions.Ledger,
	aggregator *portfolio.Aggregator,
	ev *events.Manager,
	log zerolog.Logger,
) *MarkSweepJob {
	return &MarkSweepJob{
		ledger:     ledger,
		aggregator: aggregator,
		events:     ev,
		log:        log.With().Str("job", "mark_sweep").Logger(),
	}
}

// Name returns the job name
func (j *MarkSweepJob) Name() string {
	return "mark_sweep"
}

// Run executes one sweep pass. Per-user failures are isolated so one
// bad user never starves the rest.
func (j *MarkSweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	users, err := j.ledger.Repo().UsersWithOpenPositions(ctx)
	if err != nil {
		return err
	}
	j.log.Debug().Int("users", len(users)).Msg("Sweep pass started")

	marked, recomputed := 0, 0
	for _, userID := range users {
		result, err := j.ledger.MarkToMarket(ctx, userID)
		if err != nil {
			j.events.EmitError("scheduler", err, map[string]interface{}{
				"user_id": userID,
				"stage":   "mark",
			})
			continue
		}
		marked += result.UpdatedCount

		n, err := j.aggregator.RecomputeAllForUser(ctx, userID)
		if err != nil {
			j.events.EmitError("scheduler", err, map[string]interface{}{
				"user_id": userID,
				"stage":   "recompute",
			})
			continue
		}
		recomputed += n
	}

	j.events.Emit(events.SweepCompleted, "scheduler", map[string]interface{}{
		"users":                 len(users),
		"positions_marked":      marked,
		"portfolios_recomputed": recomputed,
	})

	return nil
}
