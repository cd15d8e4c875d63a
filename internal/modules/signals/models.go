package signals

import (
	"fmt"
	"strings"
	"time"

	"github.com/tradewind/papertrader/internal/domain"
)

// Signal is a request to open a paper position. Status transitions are
// one-directional: queued -> executed | rejected | cancelled.
type Signal struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Symbol     string              `json:"symbol"`
	Side       domain.SignalSide   `json:"side"`
	Quantity   float64             `json:"quantity"`
	LimitPrice *float64            `json:"limit_price,omitempty"`
	StopLoss   *float64            `json:"stop_loss,omitempty"`
	TakeProfit *float64            `json:"take_profit,omitempty"`
	Confidence *float64            `json:"confidence,omitempty"`
	Status     domain.SignalStatus `json:"status"`
	Reason     string              `json:"reason,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	ExecutedAt *time.Time          `json:"executed_at,omitempty"`
}

// Validate normalizes the signal and checks field constraints
func (s *Signal) Validate() error {
	s.Symbol = strings.ToUpper(strings.TrimSpace(s.Symbol))
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required: %w", domain.ErrValidation)
	}
	if !s.Side.IsValid() {
		return fmt.Errorf("side must be BUY or SELL, got %q: %w", s.Side, domain.ErrValidation)
	}
	if s.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %f: %w", s.Quantity, domain.ErrValidation)
	}
	if s.LimitPrice != nil && *s.LimitPrice <= 0 {
		return fmt.Errorf("limit_price must be positive: %w", domain.ErrValidation)
	}
	if s.StopLoss != nil && *s.StopLoss <= 0 {
		return fmt.Errorf("stop_loss must be positive: %w", domain.ErrValidation)
	}
	if s.TakeProfit != nil && *s.TakeProfit <= 0 {
		return fmt.Errorf("take_profit must be positive: %w", domain.ErrValidation)
	}
	if s.Confidence != nil && (*s.Confidence < 0 || *s.Confidence > 1) {
		return fmt.Errorf("confidence must be in [0, 1]: %w", domain.ErrValidation)
	}
	return nil
}

// CreateSignalRequest is the boundary contract for POST /api/signals
type CreateSignalRequest struct {
	Symbol     string   `json:"symbol"`
	Side       string   `json:"side"`
	Quantity   float64  `json:"quantity"`
	LimitPrice *float64 `json:"limit_price,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}
