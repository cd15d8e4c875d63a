package analytics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/tradewind/papertrader/internal/database"
	"github.com/tradewind/papertrader/internal/modules/positions"
)

func newTestEngine(t *testing.T) (*Engine, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(database.Schema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewEngine(positions.NewRepository(db, log), log), db
}

// seedClosedTrades inserts one closed position per P&L value, with
// closed_at staggered one second apart so the window query orders them
// deterministically.
func seedClosedTrades(t *testing.T, db *sql.DB, userID, symbol string, pnls []float64) {
	t.Helper()

	base := time.Now().UTC().Add(-time.Hour)
	for i, pnl := range pnls {
		signalID := uuid.NewString()
		closedAt := base.Add(time.Duration(i) * time.Second).Unix()

		_, err := db.Exec(
			`INSERT INTO signals (id, user_id, symbol, side, quantity, status, created_at)
			 VALUES (?, ?, ?, 'BUY', 1, 'executed', ?)`,
			signalID, userID, symbol, closedAt,
		)
		require.NoError(t, err)

		_, err = db.Exec(
			`INSERT INTO positions (id, user_id, signal_id, symbol, side, quantity,
			                        entry_price, current_price, unrealized_pnl, status,
			                        exit_price, realized_pnl, opened_at, closed_at, updated_at)
			 VALUES (?, ?, ?, ?, 'LONG', 1, 100, 100, 0, 'closed', 100, ?, ?, ?, ?)`,
			uuid.NewString(), userID, signalID, symbol, pnl, closedAt, closedAt, closedAt,
		)
		require.NoError(t, err)
	}
}

func TestAnalyze_EmptyWindow(t *testing.T) {
	engine, _ := newTestEngine(t)

	got, err := engine.Analyze(context.Background(), "user-1", 0)
	require.NoError(t, err)

	assert.Equal(t, DefaultWindowDays, got.WindowDays)
	assert.Equal(t, 0, got.TradeCount)
	assert.Empty(t, got.CorrelationMatrix)
	assert.Empty(t, got.RiskAttribution)
	assert.Empty(t, got.SharpeByAsset)
	assert.Equal(t, []string{"portfolio balanced: no concentration, correlation, or strategy issues detected"}, got.Suggestions)
}

func TestAnalyze_SharpePerAsset(t *testing.T) {
	engine, db := newTestEngine(t)

	seedClosedTrades(t, db, "user-1", "BTCUSDT", []float64{1, 2, 3, 4, 5})
	seedClosedTrades(t, db, "user-1", "ETHUSDT", []float64{7}) // single trade, zero stdev

	got, err := engine.Analyze(context.Background(), "user-1", 30)
	require.NoError(t, err)

	assert.Equal(t, 6, got.TradeCount)
	// mean 3 over population stdev sqrt(2)
	assert.InDelta(t, 2.1213, got.SharpeByAsset["BTCUSDT"], 1e-3)
	assert.Equal(t, 0.0, got.SharpeByAsset["ETHUSDT"])
}

func TestAnalyze_CorrelationSampleFloor(t *testing.T) {
	engine, db := newTestEngine(t)

	// Perfectly linear pair with enough samples; DOGE stays below the floor
	seedClosedTrades(t, db, "user-1", "BTCUSDT", []float64{1, 2, 3, 4, 5})
	seedClosedTrades(t, db, "user-1", "ETHUSDT", []float64{2, 4, 6, 8, 10})
	seedClosedTrades(t, db, "user-1", "DOGEUSDT", []float64{1, -1})

	got, err := engine.Analyze(context.Background(), "user-1", 30)
	require.NoError(t, err)

	require.Len(t, got.CorrelationMatrix, 1)
	entry := got.CorrelationMatrix[0]
	assert.Equal(t, "BTCUSDT", entry.AssetA)
	assert.Equal(t, "ETHUSDT", entry.AssetB)
	assert.InDelta(t, 1.0, entry.Coefficient, 1e-9)
	assert.Equal(t, 5, entry.SampleSize)
}

func TestAnalyze_AttributionDenominatorGuards(t *testing.T) {
	engine, db := newTestEngine(t)

	// Identical P&L everywhere: zero portfolio variance, zero total P&L
	seedClosedTrades(t, db, "user-1", "BTCUSDT", []float64{0, 0, 0})

	got, err := engine.Analyze(context.Background(), "user-1", 30)
	require.NoError(t, err)

	require.Len(t, got.RiskAttribution, 1)
	assert.Equal(t, 0.0, got.RiskAttribution[0].ContributionToVariance)
	assert.Equal(t, 0.0, got.RiskAttribution[0].BetaToPortfolio)
}

func TestAnalyze_IgnoresOtherUsers(t *testing.T) {
	engine, db := newTestEngine(t)

	seedClosedTrades(t, db, "user-2", "BTCUSDT", []float64{1, 2, 3})

	got, err := engine.Analyze(context.Background(), "user-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TradeCount)
}

func TestSuggestions_RuleOrderAndMessages(t *testing.T) {
	engine, _ := newTestEngine(t)

	attribution := []AttributionEntry{
		{Symbol: "BTCUSDT", ContributionToVariance: 0.45, BetaToPortfolio: 0.8},
		{Symbol: "SOLUSDT", ContributionToVariance: 0.1, BetaToPortfolio: -0.5},
	}
	matrix := []CorrelationEntry{
		{AssetA: "BTCUSDT", AssetB: "ETHUSDT", Coefficient: 0.92},
		{AssetA: "BTCUSDT", AssetB: "SOLUSDT", Coefficient: 0.1},
	}

	got := engine.suggestions(attribution, matrix)

	require.Len(t, got, 3)
	assert.Equal(t, "concentration warning: BTCUSDT contributes 45.0% of portfolio variance, consider reducing exposure", got[0])
	assert.Equal(t, "diversification warning: BTCUSDT and ETHUSDT are highly correlated (0.92)", got[1])
	assert.Equal(t, "strategy review: SOLUSDT trades against the portfolio (beta -0.50)", got[2])
}

func TestSuggestions_NegativeCorrelationFires(t *testing.T) {
	engine, _ := newTestEngine(t)

	matrix := []CorrelationEntry{
		{AssetA: "BTCUSDT", AssetB: "ETHUSDT", Coefficient: -0.85},
	}

	got := engine.suggestions(nil, matrix)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "highly correlated (-0.85)")
}

func TestSuggestions_QuietRulesYieldBalanced(t *testing.T) {
	engine, _ := newTestEngine(t)

	attribution := []AttributionEntry{
		{Symbol: "BTCUSDT", ContributionToVariance: 0.2, BetaToPortfolio: 0.5},
	}

	got := engine.suggestions(attribution, nil)
	assert.Equal(t, []string{"portfolio balanced: no concentration, correlation, or strategy issues detected"}, got)
}
