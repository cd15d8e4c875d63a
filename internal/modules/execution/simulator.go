// Package execution simulates fills for eligible signals.
package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind/papertrader/internal/domain"
	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/internal/modules/signals"
)

// Simulator turns an eligible signal plus a reference price into a
// fill. It is deterministic: identical inputs always produce the same
// fill price; only the upstream market price may vary.
type Simulator struct {
	slippage float64
}

// NewSimulator creates a simulator with the given slippage rate
// (fraction of the reference price, e.g. 0.001 for 0.1%)
func NewSimulator(slippage float64) *Simulator {
	return &Simulator{slippage: slippage}
}

// FillPrice applies the slippage model to a reference price. Slippage
// is always adverse: buys fill above the reference, sells below it.
func (s *Simulator) FillPrice(side domain.SignalSide, referencePrice float64) float64 {
	if side == domain.SideBuy {
		return referencePrice * (1 + s.slippage)
	}
	return referencePrice * (1 - s.slippage)
}

// BuildPosition constructs the open position resulting from filling a
// signal at the given reference price. BUY opens LONG, SELL opens SHORT.
func (s *Simulator) BuildPosition(sig *signals.Signal, referencePrice float64, now time.Time) *positions.Position {
	fill := s.FillPrice(sig.Side, referencePrice)

	side := domain.SideLong
	if sig.Side == domain.SideSell {
		side = domain.SideShort
	}

	return &positions.Position{
		ID:           uuid.NewString(),
		UserID:       sig.UserID,
		SignalID:     sig.ID,
		Symbol:       sig.Symbol,
		Side:         side,
		Quantity:     sig.Quantity,
		EntryPrice:   fill,
		CurrentPrice: fill,
		StopLoss:     sig.StopLoss,
		TakeProfit:   sig.TakeProfit,
		Status:       domain.PositionOpen,
		OpenedAt:     now,
		UpdatedAt:    now,
	}
}
