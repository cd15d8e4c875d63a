package signals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
)

// Repository handles signal database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new signal repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "signals").Logger(),
	}
}

const signalColumns = `id, user_id, symbol, side, quantity, limit_price, stop_loss,
	take_profit, confidence, status, reason, created_at, executed_at`

// Create inserts a new signal record
func (r *Repository) Create(ctx context.Context, sig *Signal) error {
	query := `
		INSERT INTO signals
		(id, user_id, symbol, side, quantity, limit_price, stop_loss,
		 take_profit, confidence, status, reason, created_at, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		sig.ID,
		sig.UserID,
		sig.Symbol,
		string(sig.Side),
		sig.Quantity,
		nullFloat64Ptr(sig.LimitPrice),
		nullFloat64Ptr(sig.StopLoss),
		nullFloat64Ptr(sig.TakeProfit),
		nullFloat64Ptr(sig.Confidence),
		string(sig.Status),
		nullString(sig.Reason),
		sig.CreatedAt.Unix(),
		nullTimePtr(sig.ExecutedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create signal (%v): %w", err, domain.ErrPersistence)
	}

	r.log.Info().
		Str("signal_id", sig.ID).
		Str("symbol", sig.Symbol).
		Str("side", string(sig.Side)).
		Float64("quantity", sig.Quantity).
		Msg("Signal created")

	return nil
}

// GetByID retrieves a signal by id
func (r *Repository) GetByID(ctx context.Context, id string) (*Signal, error) {
	query := "SELECT " + signalColumns + " FROM signals WHERE id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	sig, err := scanSignal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("signal %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal %s (%v): %w", id, err, domain.ErrPersistence)
	}

	return sig, nil
}

// ListByUser retrieves a user's signals, optionally filtered by status,
// most recent first
func (r *Repository) ListByUser(ctx context.Context, userID string, status string) ([]Signal, error) {
	query := "SELECT " + signalColumns + " FROM signals WHERE user_id = ?"
	args := []interface{}{userID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, strings.ToLower(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list signals (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	var result []Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal (%v): %w", err, domain.ErrPersistence)
		}
		result = append(result, *sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals (%v): %w", err, domain.ErrPersistence)
	}

	return result, nil
}

// MarkExecutedTx flips the signal to executed inside the caller's
// transaction. The WHERE clause is a compare-and-set: it only matches a
// queued signal, so concurrent executors race on the row and exactly
// one observes an affected-row count of 1.
func (r *Repository) MarkExecutedTx(tx *sql.Tx, id string, executedAt time.Time) (bool, error) {
	query := `
		UPDATE signals
		SET status = 'executed', executed_at = ?
		WHERE id = ? AND status = 'queued'
	`

	res, err := tx.Exec(query, executedAt.Unix(), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark signal executed (%v): %w", err, domain.ErrPersistence)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows (%v): %w", err, domain.ErrPersistence)
	}

	return affected == 1, nil
}

// MarkRejected transitions a queued signal to rejected with a reason.
// Terminal signals are left untouched.
func (r *Repository) MarkRejected(ctx context.Context, id string, reason string) error {
	return r.markTerminal(ctx, id, domain.SignalRejected, reason)
}

// MarkCancelled transitions a queued signal to cancelled
func (r *Repository) MarkCancelled(ctx context.Context, id string) error {
	return r.markTerminal(ctx, id, domain.SignalCancelled, "")
}

func (r *Repository) markTerminal(ctx context.Context, id string, status domain.SignalStatus, reason string) error {
	query := `
		UPDATE signals
		SET status = ?, reason = ?
		WHERE id = ? AND status = 'queued'
	`

	res, err := r.db.ExecContext(ctx, query, string(status), nullString(reason), id)
	if err != nil {
		return fmt.Errorf("failed to mark signal %s (%v): %w", status, err, domain.ErrPersistence)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows (%v): %w", err, domain.ErrPersistence)
	}
	if affected == 0 {
		return fmt.Errorf("signal %s is not queued: %w", id, domain.ErrInvalidState)
	}

	r.log.Info().Str("signal_id", id).Str("status", string(status)).Msg("Signal transitioned")
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanSignal
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSignal(row scanner) (*Signal, error) {
	var sig Signal
	var side, status string
	var limitPrice, stopLoss, takeProfit, confidence sql.NullFloat64
	var reason sql.NullString
	var createdAt int64
	var executedAt sql.NullInt64

	err := row.Scan(
		&sig.ID,
		&sig.UserID,
		&sig.Symbol,
		&side,
		&sig.Quantity,
		&limitPrice,
		&stopLoss,
		&takeProfit,
		&confidence,
		&status,
		&reason,
		&createdAt,
		&executedAt,
	)
	if err != nil {
		return nil, err
	}

	sig.Side = domain.SignalSide(side)
	sig.Status = domain.SignalStatus(status)
	sig.CreatedAt = time.Unix(createdAt, 0).UTC()
	sig.LimitPrice = float64Ptr(limitPrice)
	sig.StopLoss = float64Ptr(stopLoss)
	sig.TakeProfit = float64Ptr(takeProfit)
	sig.Confidence = float64Ptr(confidence)
	if reason.Valid {
		sig.Reason = reason.String
	}
	if executedAt.Valid {
		t := time.Unix(executedAt.Int64, 0).UTC()
		sig.ExecutedAt = &t
	}

	return &sig, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func float64Ptr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
