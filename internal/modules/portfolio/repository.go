package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
)

// Repository handles portfolio database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

const portfolioColumns = "id, user_id, initial_balance, current_balance, total_pnl, updated_at"

// Create inserts a new portfolio record
func (r *Repository) Create(ctx context.Context, p *Portfolio) error {
	query := `
		INSERT INTO portfolios
		(id, user_id, initial_balance, current_balance, total_pnl, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.UserID,
		p.InitialBalance,
		p.CurrentBalance,
		p.TotalPnL,
		p.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create portfolio (%v): %w", err, domain.ErrPersistence)
	}

	r.log.Info().
		Str("portfolio_id", p.ID).
		Str("user_id", p.UserID).
		Float64("initial_balance", p.InitialBalance).
		Msg("Portfolio created")

	return nil
}

// GetByID retrieves a portfolio by id
func (r *Repository) GetByID(ctx context.Context, id string) (*Portfolio, error) {
	query := "SELECT " + portfolioColumns + " FROM portfolios WHERE id = ?"

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %s (%v): %w", id, err, domain.ErrPersistence)
	}

	return p, nil
}

// ListByUser retrieves all portfolios owned by a user
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]Portfolio, error) {
	query := "SELECT " + portfolioColumns + " FROM portfolios WHERE user_id = ? ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	var result []Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio (%v): %w", err, domain.ErrPersistence)
		}
		result = append(result, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios (%v): %w", err, domain.ErrPersistence)
	}

	return result, nil
}

// UpdateTotalPnL writes a freshly recomputed total P&L
func (r *Repository) UpdateTotalPnL(ctx context.Context, id string, totalPnL float64, at time.Time) error {
	query := "UPDATE portfolios SET total_pnl = ?, updated_at = ? WHERE id = ?"

	res, err := r.db.ExecContext(ctx, query, totalPnL, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %s (%v): %w", id, err, domain.ErrPersistence)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows (%v): %w", err, domain.ErrPersistence)
	}
	if affected == 0 {
		return fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row scanner) (*Portfolio, error) {
	var p Portfolio
	var updatedAt int64

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.InitialBalance,
		&p.CurrentBalance,
		&p.TotalPnL,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &p, nil
}
