package portfolio

import "time"

// Portfolio is an aggregation root per user (or sub-account).
// total_pnl is always recomputed from balance plus open-position value,
// never incrementally patched, to avoid drift.
type Portfolio struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	InitialBalance float64   `json:"initial_balance"`
	CurrentBalance float64   `json:"current_balance"`
	TotalPnL       float64   `json:"total_pnl"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreatePortfolioRequest is the boundary contract for POST /api/portfolios
type CreatePortfolioRequest struct {
	InitialBalance float64 `json:"initial_balance"`
}
