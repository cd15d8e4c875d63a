// Package analytics derives risk metrics from closed trades. All
// computations are pure reads; the engine never writes.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradewind/papertrader/internal/modules/positions"
	"github.com/tradewind/papertrader/pkg/formulas"
)

const (
	// DefaultWindowDays is the trailing trade window when the caller
	// does not specify one
	DefaultWindowDays = 30

	// minCorrelationSamples is the per-asset trade count below which a
	// pair is omitted from the correlation matrix
	minCorrelationSamples = 5

	concentrationThreshold = 0.3
	correlationThreshold   = 0.7
	betaThreshold          = -0.2
)

// Engine computes the risk analytics bundle
type Engine struct {
	posRepo *positions.Repository
	log     zerolog.Logger
}

// NewEngine creates a new risk analytics engine
func NewEngine(posRepo *positions.Repository, log zerolog.Logger) *Engine {
	return &Engine{
		posRepo: posRepo,
		log:     log.With().Str("service", "analytics").Logger(),
	}
}

// Analyze computes the analytics bundle over the user's closed trades
// in a trailing window. It degrades on thin data: Sharpe ratios zero
// out, under-sampled correlation pairs are omitted, and an empty window
// yields an empty bundle, never an error.
func (e *Engine) Analyze(ctx context.Context, userID string, windowDays int) (*RiskAnalytics, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	trades, err := e.posRepo.ClosedByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	// Per-asset realized P&L series, time-aligned by trade index
	// (trades arrive oldest first).
	bySymbol := make(map[string][]float64)
	var portfolioSeries []float64
	for i := range trades {
		if trades[i].RealizedPnL == nil {
			continue
		}
		pnl := *trades[i].RealizedPnL
		bySymbol[trades[i].Symbol] = append(bySymbol[trades[i].Symbol], pnl)
		portfolioSeries = append(portfolioSeries, pnl)
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	result := &RiskAnalytics{
		WindowDays:        windowDays,
		TradeCount:        len(portfolioSeries),
		CorrelationMatrix: []CorrelationEntry{},
		RiskAttribution:   []AttributionEntry{},
		SharpeByAsset:     make(map[string]float64, len(symbols)),
	}

	for _, sym := range symbols {
		result.SharpeByAsset[sym] = formulas.SharpeRatio(bySymbol[sym])
	}

	result.RiskAttribution = e.attribution(symbols, bySymbol, portfolioSeries)
	result.CorrelationMatrix = e.correlations(symbols, bySymbol)
	result.Suggestions = e.suggestions(result.RiskAttribution, result.CorrelationMatrix)

	e.log.Debug().
		Str("user_id", userID).
		Int("trades", result.TradeCount).
		Int("assets", len(symbols)).
		Msg("Analytics computed")

	return result, nil
}

// attribution computes each asset's share of portfolio variance and
// its P&L beta, both guarded to 0 on a zero denominator.
func (e *Engine) attribution(symbols []string, bySymbol map[string][]float64, portfolioSeries []float64) []AttributionEntry {
	portfolioVariance := formulas.PopVariance(portfolioSeries)

	var totalPnL float64
	for _, pnl := range portfolioSeries {
		totalPnL += pnl
	}

	entries := make([]AttributionEntry, 0, len(symbols))
	for _, sym := range symbols {
		series := bySymbol[sym]

		var assetPnL float64
		for _, pnl := range series {
			assetPnL += pnl
		}

		contribution := 0.0
		if portfolioVariance != 0 {
			contribution = formulas.PopVariance(series) / portfolioVariance
		}

		beta := 0.0
		if totalPnL != 0 {
			beta = assetPnL / totalPnL
		}

		entries = append(entries, AttributionEntry{
			Symbol:                 sym,
			TradeCount:             len(series),
			TotalPnL:               assetPnL,
			ContributionToVariance: contribution,
			BetaToPortfolio:        beta,
		})
	}

	return entries
}

// correlations builds the pairwise Pearson matrix over assets with
// enough trades, aligning the two series by trade index (truncated to
// the shorter length).
func (e *Engine) correlations(symbols []string, bySymbol map[string][]float64) []CorrelationEntry {
	entries := []CorrelationEntry{}

	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, b := bySymbol[symbols[i]], bySymbol[symbols[j]]
			if len(a) < minCorrelationSamples || len(b) < minCorrelationSamples {
				continue
			}

			n := len(a)
			if len(b) < n {
				n = len(b)
			}

			entries = append(entries, CorrelationEntry{
				AssetA:      symbols[i],
				AssetB:      symbols[j],
				Coefficient: formulas.Correlation(a[:n], b[:n]),
				SampleSize:  n,
			})
		}
	}

	return entries
}

// suggestions runs the rule set in fixed order: concentration first,
// then correlation, then beta. All firing rules are emitted; a quiet
// rule set yields the single balanced message.
func (e *Engine) suggestions(attribution []AttributionEntry, matrix []CorrelationEntry) []string {
	var out []string

	for _, entry := range attribution {
		if entry.ContributionToVariance > concentrationThreshold {
			out = append(out, fmt.Sprintf(
				"concentration warning: %s contributes %.1f%% of portfolio variance, consider reducing exposure",
				entry.Symbol, entry.ContributionToVariance*100))
		}
	}

	for _, entry := range matrix {
		if math.Abs(entry.Coefficient) > correlationThreshold {
			out = append(out, fmt.Sprintf(
				"diversification warning: %s and %s are highly correlated (%.2f)",
				entry.AssetA, entry.AssetB, entry.Coefficient))
		}
	}

	for _, entry := range attribution {
		if entry.BetaToPortfolio < betaThreshold {
			out = append(out, fmt.Sprintf(
				"strategy review: %s trades against the portfolio (beta %.2f)",
				entry.Symbol, entry.BetaToPortfolio))
		}
	}

	if len(out) == 0 {
		out = append(out, "portfolio balanced: no concentration, correlation, or strategy issues detected")
	}

	return out
}
