package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// PopVariance calculates the population variance (divisor N, not N-1).
// P&L series here are the complete population of trades in the window,
// not a sample drawn from one.
func PopVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	mean := stat.Mean(data, nil)
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(data))
}

// PopStdDev calculates the population standard deviation
func PopStdDev(data []float64) float64 {
	v := PopVariance(data)
	if v == 0 {
		return 0
	}
	return math.Sqrt(v)
}

// Returns converts a price series to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Correlation calculates the Pearson correlation coefficient between two series.
// A zero-variance series has no defined correlation; the guard returns 0
// instead of NaN.
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	if PopVariance(x) == 0 || PopVariance(y) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
