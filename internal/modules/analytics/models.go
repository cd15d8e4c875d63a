package analytics

// CorrelationEntry is one pair in the correlation matrix. Pairs whose
// assets have fewer than the minimum trade count are omitted entirely,
// never approximated.
type CorrelationEntry struct {
	AssetA      string  `json:"asset_a"`
	AssetB      string  `json:"asset_b"`
	Coefficient float64 `json:"coefficient"`
	SampleSize  int     `json:"sample_size"`
}

// AttributionEntry decomposes portfolio risk by asset
type AttributionEntry struct {
	Symbol                 string  `json:"symbol"`
	TradeCount             int     `json:"trade_count"`
	TotalPnL               float64 `json:"total_pnl"`
	ContributionToVariance float64 `json:"contribution_to_variance"`
	BetaToPortfolio        float64 `json:"beta_to_portfolio"`
}

// RiskAnalytics is the full analytics bundle for a user's trade window
type RiskAnalytics struct {
	WindowDays        int                `json:"window_days"`
	TradeCount        int                `json:"trade_count"`
	CorrelationMatrix []CorrelationEntry `json:"correlation_matrix"`
	RiskAttribution   []AttributionEntry `json:"risk_attribution"`
	SharpeByAsset     map[string]float64 `json:"sharpe_by_asset"`
	Suggestions       []string           `json:"suggestions"`
}

// TPSLSuggestion proposes stop-loss and take-profit bands for a symbol
// from its recorded price history. InsufficientData marks a series too
// short for indicator computation; the numeric fields are then zero.
type TPSLSuggestion struct {
	Symbol           string  `json:"symbol"`
	CurrentPrice     float64 `json:"current_price,omitempty"`
	StopLoss         float64 `json:"stop_loss,omitempty"`
	TakeProfit       float64 `json:"take_profit,omitempty"`
	RSI              float64 `json:"rsi,omitempty"`
	Volatility       float64 `json:"volatility,omitempty"`
	MaxDrawdown      float64 `json:"max_drawdown,omitempty"`
	SampleSize       int     `json:"sample_size"`
	InsufficientData bool    `json:"insufficient_data"`
}
