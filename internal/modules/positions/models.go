package positions

import (
	"time"

	"github.com/tradewind/papertrader/internal/domain"
)

// Position is the simulated holding that results from executing a
// signal. Entry price is immutable after creation; exit price and
// realized P&L are set exactly once, on close.
type Position struct {
	ID            string                `json:"id"`
	UserID        string                `json:"user_id"`
	SignalID      string                `json:"signal_id"`
	Symbol        string                `json:"symbol"`
	Side          domain.PositionSide   `json:"side"`
	Quantity      float64               `json:"quantity"`
	EntryPrice    float64               `json:"entry_price"`
	CurrentPrice  float64               `json:"current_price"`
	StopLoss      *float64              `json:"stop_loss,omitempty"`
	TakeProfit    *float64              `json:"take_profit,omitempty"`
	UnrealizedPnL float64               `json:"unrealized_pnl"`
	Status        domain.PositionStatus `json:"status"`
	ExitPrice     *float64              `json:"exit_price,omitempty"`
	RealizedPnL   *float64              `json:"realized_pnl,omitempty"`
	OpenedAt      time.Time             `json:"opened_at"`
	ClosedAt      *time.Time            `json:"closed_at,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// CurrentValue is the position's worth at its last marked price
func (p *Position) CurrentValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// PnLAt computes profit and loss against the entry price at the given
// price. LONG gains when price rises, SHORT when it falls.
func (p *Position) PnLAt(price float64) float64 {
	pnl := p.Quantity * (price - p.EntryPrice)
	if p.Side == domain.SideShort {
		return -pnl
	}
	return pnl
}

// ApplyMark updates the position's mark-to-market fields for a price.
// Applying the same price twice yields identical fields.
func (p *Position) ApplyMark(price float64) {
	p.CurrentPrice = price
	p.UnrealizedPnL = p.PnLAt(price)
}

// ClosePositionRequest is the boundary contract for
// POST /api/positions/{id}/close. When ExitPrice is omitted the close
// uses the current oracle price.
type ClosePositionRequest struct {
	ExitPrice *float64 `json:"exit_price,omitempty"`
}

// MarkToMarketResponse reports partial success of a mark batch
type MarkToMarketResponse struct {
	UpdatedCount   int `json:"updated_count"`
	AttemptedCount int `json:"attempted_count"`
}
