package formulas

// MaxDrawdown calculates the maximum peak-to-trough decline of a price
// series, as a positive fraction (0.25 = 25% loss from peak).
// Returns 0 for series too short to have a drawdown.
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}
