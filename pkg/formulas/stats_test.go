package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPopStdDev(t *testing.T) {
	testCases := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{
			name:     "Empty series",
			data:     nil,
			expected: 0,
		},
		{
			name:     "Single value has no spread",
			data:     []float64{42},
			expected: 0,
		},
		{
			name:     "Constant series",
			data:     []float64{5, 5, 5, 5},
			expected: 0,
		},
		{
			name:     "Known population stdev",
			data:     []float64{2, 4, 4, 4, 5, 5, 7, 9},
			expected: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, PopStdDev(tc.data), 1e-9)
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	// Zero-variance and single-trade series must evaluate to 0,
	// never NaN or a division fault.
	assert.Equal(t, 0.0, SharpeRatio(nil))
	assert.Equal(t, 0.0, SharpeRatio([]float64{10}))
	assert.Equal(t, 0.0, SharpeRatio([]float64{3, 3, 3}))

	got := SharpeRatio([]float64{1, 2, 3, 4, 5})
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 3.0/math.Sqrt(2), got, 1e-9)
}

func TestCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, Correlation(x, []float64{2, 4, 6, 8, 10}), 1e-9)
	assert.InDelta(t, -1.0, Correlation(x, []float64{10, 8, 6, 4, 2}), 1e-9)

	// Mismatched lengths and zero-variance series guard to 0
	assert.Equal(t, 0.0, Correlation(x, []float64{1, 2}))
	assert.Equal(t, 0.0, Correlation(x, []float64{7, 7, 7, 7, 7}))
}

func TestReturns(t *testing.T) {
	got := Returns([]float64{100, 110, 99})
	assert.Len(t, got, 2)
	assert.InDelta(t, 0.10, got[0], 1e-9)
	assert.InDelta(t, -0.10, got[1], 1e-9)

	assert.Empty(t, Returns([]float64{100}))
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown([]float64{100}))
	assert.InDelta(t, 0.5, MaxDrawdown([]float64{100, 200, 100, 150}), 1e-9)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{1, 2, 3, 4}))
}
