package positions

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

// Repository handles position database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new position repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "positions").Logger(),
	}
}

const positionColumns = `id, user_id, signal_id, symbol, side, quantity, entry_price,
	current_price, stop_loss, take_profit, unrealized_pnl, status, exit_price,
	realized_pnl, opened_at, closed_at, updated_at`

// InsertTx inserts a new position inside the caller's transaction.
// The UNIQUE constraint on signal_id rejects a second position for the
// same signal at the storage level.
func (r *Repository) InsertTx(tx *sql.Tx, pos *Position) error {
	query := `
		INSERT INTO positions
		(id, user_id, signal_id, symbol, side, quantity, entry_price,
		 current_price, stop_loss, take_profit, unrealized_pnl, status,
		 exit_price, realized_pnl, opened_at, closed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		pos.ID,
		pos.UserID,
		pos.SignalID,
		pos.Symbol,
		string(pos.Side),
		pos.Quantity,
		pos.EntryPrice,
		pos.CurrentPrice,
		nullFloat64Ptr(pos.StopLoss),
		nullFloat64Ptr(pos.TakeProfit),
		pos.UnrealizedPnL,
		string(pos.Status),
		nullFloat64Ptr(pos.ExitPrice),
		nullFloat64Ptr(pos.RealizedPnL),
		pos.OpenedAt.Unix(),
		nullTimePtr(pos.ClosedAt),
		pos.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert position (%v): %w", err, domain.ErrPersistence)
	}

	return nil
}

// GetByID retrieves a position by id
func (r *Repository) GetByID(ctx context.Context, id string) (*Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	pos, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s (%v): %w", id, err, domain.ErrPersistence)
	}

	return pos, nil
}

// OpenByUser retrieves all open positions for a user
func (r *Repository) OpenByUser(ctx context.Context, userID string) ([]Position, error) {
	return r.ListByUser(ctx, userID, string(domain.PositionOpen))
}

// ListByUser retrieves a user's positions, optionally filtered by
// status, most recently opened first
func (r *Repository) ListByUser(ctx context.Context, userID string, status string) ([]Position, error) {
	query := "SELECT " + positionColumns + " FROM positions WHERE user_id = ?"
	args := []interface{}{userID}

	if status != "" {
		query += " AND status = ?"
		args = append(args, strings.ToLower(status))
	}
	query += " ORDER BY opened_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// ClosedByUserSince retrieves closed positions with a close timestamp
// at or after the cutoff, oldest first. This is the trade window the
// analytics engine consumes.
func (r *Repository) ClosedByUserSince(ctx context.Context, userID string, since time.Time) ([]Position, error) {
	query := "SELECT " + positionColumns + ` FROM positions
		WHERE user_id = ? AND status = 'closed' AND closed_at >= ?
		ORDER BY closed_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to list closed positions (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// UpdateMark persists the mark-to-market fields of a position
func (r *Repository) UpdateMark(ctx context.Context, id string, price, unrealizedPnL float64, at time.Time) error {
	query := `
		UPDATE positions
		SET current_price = ?, unrealized_pnl = ?, updated_at = ?
		WHERE id = ? AND status = 'open'
	`

	res, err := r.db.ExecContext(ctx, query, price, unrealizedPnL, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update mark for %s (%v): %w", id, err, domain.ErrPersistence)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows (%v): %w", err, domain.ErrPersistence)
	}
	if affected == 0 {
		return fmt.Errorf("position %s is not open: %w", id, domain.ErrInvalidState)
	}

	return nil
}

// Close flips an open position to closed, setting exit price and
// realized P&L exactly once. The WHERE clause is a compare-and-set on
// status, so a second close observes zero affected rows.
func (r *Repository) Close(ctx context.Context, id string, exitPrice, realizedPnL float64, at time.Time) error {
	query := `
		UPDATE positions
		SET status = 'closed', exit_price = ?, realized_pnl = ?,
		    closed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'open'
	`

	res, err := r.db.ExecContext(ctx, query, exitPrice, realizedPnL, at.Unix(), at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to close position %s (%v): %w", id, err, domain.ErrPersistence)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows (%v): %w", err, domain.ErrPersistence)
	}
	if affected == 0 {
		return fmt.Errorf("position %s is not open: %w", id, domain.ErrInvalidState)
	}

	r.log.Info().
		Str("position_id", id).
		Float64("exit_price", exitPrice).
		Float64("realized_pnl", realizedPnL).
		Msg("Position closed")

	return nil
}

// UsersWithOpenPositions returns the distinct user ids holding at least
// one open position. The sweep job iterates over this set.
func (r *Repository) UsersWithOpenPositions(ctx context.Context) ([]string, error) {
	query := "SELECT DISTINCT user_id FROM positions WHERE status = 'open'"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users with open positions (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id (%v): %w", err, domain.ErrPersistence)
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users (%v): %w", err, domain.ErrPersistence)
	}

	return users, nil
}

func collectPositions(rows *sql.Rows) ([]Position, error) {
	var result []Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position (%v): %w", err, domain.ErrPersistence)
		}
		result = append(result, *pos)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions (%v): %w", err, domain.ErrPersistence)
	}

	return result, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row scanner) (*Position, error) {
	var pos Position
	var side, status string
	var stopLoss, takeProfit, exitPrice, realizedPnL sql.NullFloat64
	var openedAt, updatedAt int64
	var closedAt sql.NullInt64

	err := row.Scan(
		&pos.ID,
		&pos.UserID,
		&pos.SignalID,
		&pos.Symbol,
		&side,
		&pos.Quantity,
		&pos.EntryPrice,
		&pos.CurrentPrice,
		&stopLoss,
		&takeProfit,
		&pos.UnrealizedPnL,
		&status,
		&exitPrice,
		&realizedPnL,
		&openedAt,
		&closedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	pos.Side = domain.PositionSide(side)
	pos.Status = domain.PositionStatus(status)
	pos.StopLoss = float64Ptr(stopLoss)
	pos.TakeProfit = float64Ptr(takeProfit)
	pos.ExitPrice = float64Ptr(exitPrice)
	pos.RealizedPnL = float64Ptr(realizedPnL)
	pos.OpenedAt = time.Unix(openedAt, 0).UTC()
	pos.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	if closedAt.Valid {
		t := time.Unix(closedAt.Int64, 0).UTC()
		pos.ClosedAt = &t
	}

	return &pos, nil
}

// Helper functions

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
