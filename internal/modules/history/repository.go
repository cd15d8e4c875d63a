// Package history stores the price series captured during
// mark-to-market passes. The TP/SL suggester reads it back.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/domain"
)

// PricePoint is one observed price for a symbol
type PricePoint struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Repository handles price history database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "price_history").Logger(),
	}
}

// Record appends an observed price for a symbol
func (r *Repository) Record(ctx context.Context, symbol string, price float64, at time.Time) error {
	query := "INSERT INTO price_history (symbol, price, recorded_at) VALUES (?, ?, ?)"

	_, err := r.db.ExecContext(ctx, query, strings.ToUpper(symbol), price, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to record price (%v): %w", err, domain.ErrPersistence)
	}

	return nil
}

// Series returns up to limit most recent prices for a symbol, oldest
// first, ready for indicator computation.
func (r *Repository) Series(ctx context.Context, symbol string, limit int) ([]float64, error) {
	query := `
		SELECT price FROM (
			SELECT price, recorded_at FROM price_history
			WHERE symbol = ?
			ORDER BY recorded_at DESC
			LIMIT ?
		) ORDER BY recorded_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, strings.ToUpper(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load price series (%v): %w", err, domain.ErrPersistence)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var price float64
		if err := rows.Scan(&price); err != nil {
			return nil, fmt.Errorf("failed to scan price (%v): %w", err, domain.ErrPersistence)
		}
		prices = append(prices, price)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices (%v): %w", err, domain.ErrPersistence)
	}

	return prices, nil
}
