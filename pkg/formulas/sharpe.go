package formulas

// SharpeRatio calculates a risk-adjusted performance score over a
// realized-P&L series.
//
//	Sharpe = mean(P&L) / population-stdev(P&L)
//
// A single trade or a zero-variance series carries no risk information,
// so the result is 0 rather than a division fault.
func SharpeRatio(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	stdDev := PopStdDev(pnls)
	if stdDev == 0 {
		return 0
	}

	return Mean(pnls) / stdDev
}
