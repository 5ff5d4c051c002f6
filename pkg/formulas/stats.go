// Package formulas provides pure numeric building blocks for factor computation:
// moving averages, oscillators, volatility/risk statistics, and trend regression.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev returns the sample standard deviation, 0 for an empty slice.
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Returns converts a price series into simple daily returns.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return out
}

// AnnualizedVolatility returns std(returns) * sqrt(252) * 100, as a percent.
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(252) * 100
}

// Sharpe returns the annualized Sharpe ratio (zero risk-free rate), or 0 when
// the return series is degenerate (< 2 points or zero variance).
func Sharpe(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	sd := StdDev(dailyReturns)
	if sd == 0 {
		return 0
	}
	return Mean(dailyReturns) / sd * math.Sqrt(252)
}

// MaxDrawdown returns the maximum peak-to-trough drawdown over a cumulative
// return series, expressed as a positive percent (25.0 = 25% loss from peak).
func MaxDrawdown(cumulativeReturns []float64) float64 {
	if len(cumulativeReturns) == 0 {
		return 0
	}
	peak := cumulativeReturns[0]
	maxDD := 0.0
	for _, v := range cumulativeReturns {
		if v > peak {
			peak = v
		}
		if peak != 0 {
			dd := (peak - v) / math.Abs(peak) * 100
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// CumulativeReturns turns a daily-return series into a cumulative-growth
// series anchored at 1.0 (1 + r1) * (1 + r2) * ...
func CumulativeReturns(dailyReturns []float64) []float64 {
	out := make([]float64, len(dailyReturns))
	cum := 1.0
	for i, r := range dailyReturns {
		cum *= 1 + r
		out[i] = cum
	}
	return out
}

// LinearRegression fits y = slope*x + intercept over x = 0..n-1 and returns
// (slope, r2). Returns (0, 0) for fewer than 2 points or a degenerate fit.
func LinearRegression(y []float64) (slope float64, r2 float64) {
	n := len(y)
	if n < 2 {
		return 0, 0
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}
	intercept, slopeVal := stat.LinearRegression(x, y, nil, false)
	r := stat.RSquaredFrom(estimate(x, intercept, slopeVal), y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	if r < 0 {
		r = 0
	}
	return slopeVal, r
}

func estimate(x []float64, intercept, slope float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = intercept + slope*v
	}
	return out
}
