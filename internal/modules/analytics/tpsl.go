package analytics

import (
	"context"
	"strings"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/modules/history"
	"github.com/tradewind/papertrader/pkg/formulas"
)

const (
	rsiPeriod        = 14
	volatilityPeriod = 20
	historyBars      = 100

	// minSuggestBars is the shortest series the indicators accept
	minSuggestBars = volatilityPeriod + 1

	stopLossSigma   = 2.0
	takeProfitSigma = 3.0
)

// Suggester derives stop-loss / take-profit bands from recorded price
// history using volatility and momentum indicators.
type Suggester struct {
	historyRepo *history.Repository
	log         zerolog.Logger
}

// NewSuggester creates a new TP/SL suggester
func NewSuggester(historyRepo *history.Repository, log zerolog.Logger) *Suggester {
	return &Suggester{
		historyRepo: historyRepo,
		log:         log.With().Str("service", "tpsl").Logger(),
	}
}

// Suggest computes bands for a symbol. Stop-loss sits two rolling
// standard deviations below the current price, take-profit three
// above, giving a 1.5 reward-to-risk ratio. Series shorter than the
// indicator windows degrade to an insufficient-data marker instead of
// erroring.
func (s *Suggester) Suggest(ctx context.Context, symbol string) (*TPSLSuggestion, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	prices, err := s.historyRepo.Series(ctx, symbol, historyBars)
	if err != nil {
		return nil, err
	}

	if len(prices) < minSuggestBars {
		return &TPSLSuggestion{
			Symbol:           symbol,
			SampleSize:       len(prices),
			InsufficientData: true,
		}, nil
	}

	rsi := talib.Rsi(prices, rsiPeriod)
	stdDev := talib.StdDev(prices, volatilityPeriod, 1.0)

	current := prices[len(prices)-1]
	sigma := stdDev[len(stdDev)-1]

	stopLoss := current - stopLossSigma*sigma
	if stopLoss < 0 {
		stopLoss = 0
	}

	return &TPSLSuggestion{
		Symbol:       symbol,
		CurrentPrice: current,
		StopLoss:     stopLoss,
		TakeProfit:   current + takeProfitSigma*sigma,
		RSI:          rsi[len(rsi)-1],
		Volatility:   sigma,
		MaxDrawdown:  formulas.MaxDrawdown(prices),
		SampleSize:   len(prices),
	}, nil
}
