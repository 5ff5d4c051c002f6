// Package factors computes the per-stock FactorSet feature vector
// StrategyEvaluator scores against, using the same statistical toolkit
// (go-talib oscillators, gonum regression/descriptive stats) the original
// trading-side formulas package built on.
package factors

import (
	"math"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/pkg/formulas"
)

// minCandlesForSignal is the smallest history FactorEngine will attempt any
// computation on; below this, Empty is set and every factor stays nil.
const minCandlesForSignal = 3

// maxWindow caps how much history one FactorSet computation consumes, per
// the ≤60-candle contract.
const maxWindow = 60

// Industry is a swappable band table entry: the PE percentile curve and
// default revenue/profit growth assumed for a sector when a stock's own
// financials are unavailable. SetIndustryBands lets a caller override the
// built-in defaults with a freshly-scraped table without a code change.
type Industry struct {
	PELow, PEMid, PEHigh float64 // band boundaries for pe_percentile
	DefaultRevenueGrowth float64
}

var defaultIndustry = Industry{PELow: 15, PEMid: 35, PEHigh: 60, DefaultRevenueGrowth: 8}

// Engine computes FactorSets. It is stateless beyond its industry band
// table, so a single instance is safe to share across concurrent
// SelectionRunner workers.
type Engine struct {
	industryBands map[string]Industry
}

// New constructs an Engine with the built-in default industry band table.
func New() *Engine {
	return &Engine{industryBands: map[string]Industry{}}
}

// SetIndustryBands installs a swappable industry -> band-table mapping,
// replacing the engine's lookup in one call.
func (e *Engine) SetIndustryBands(bands map[string]Industry) {
	e.industryBands = bands
}

func (e *Engine) industryFor(name string) Industry {
	if b, ok := e.industryBands[name]; ok {
		return b
	}
	return defaultIndustry
}

// Input bundles one stock's recent history and latest fundamentals/flow —
// everything FactorEngine needs to compute one FactorSet.
type Input struct {
	Code     string
	Industry string
	Candles  []domain.Candle // ascending by date, most recent last
	Basic    *domain.DailyBasic
	Flow     *domain.FundFlow
	// SectorChange5D and SectorMainFlow are pre-aggregated by the caller
	// from sector_moneyflow history (FactorEngine does not read Store).
	SectorChange5D *float64
	SectorMainFlow *float64
}

// Compute builds a FactorSet from in. Candles beyond maxWindow are
// truncated to the most recent maxWindow; fewer than minCandlesForSignal
// candles yields an Empty FactorSet with only CurrentPrice populated (if
// any candle exists at all).
func (e *Engine) Compute(in Input) domain.FactorSet {
	candles := in.Candles
	if len(candles) > maxWindow {
		candles = candles[len(candles)-maxWindow:]
	}

	if len(candles) == 0 {
		return domain.FactorSet{Code: in.Code, Empty: true}
	}
	if len(candles) <= 2 {
		return domain.FactorSet{Code: in.Code, CurrentPrice: candles[len(candles)-1].Close, Empty: true}
	}

	closes := closesOf(candles)
	fs := domain.FactorSet{Code: in.Code, CurrentPrice: closes[len(closes)-1]}

	computeMomentum(&fs, closes)
	computeOscillators(&fs, closes)
	computeMACD(&fs, closes)
	computeVolatilityRisk(&fs, closes)
	computeVolume(&fs, candles)
	computeTrend(&fs, closes)
	computePriceLocation(&fs, closes)
	computeMovingAverages(&fs, closes)
	computeFundamentals(&fs, in, e.industryFor(in.Industry))
	computeSectorHeat(&fs, in)

	return fs
}

func closesOf(candles []domain.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func computeMomentum(fs *domain.FactorSet, closes []float64) {
	n := len(closes)
	last := closes[n-1]
	if n > 20 {
		anchor := closes[n-21]
		if anchor != 0 {
			fs.Ret20D = domain.F64((last/anchor - 1) * 100)
		}
	}
	if n > 60 {
		anchor := closes[n-61]
		if anchor != 0 {
			fs.Ret60D = domain.F64((last/anchor - 1) * 100)
		}
	}
}

func computeOscillators(fs *domain.FactorSet, closes []float64) {
	rsi := formulas.RSI(closes, 14)
	if rsi == nil || math.IsNaN(*rsi) {
		fs.RSI = domain.F64(50)
	} else {
		fs.RSI = rsi
	}
	prev := formulas.RSIPrev(closes, 14)
	if prev == nil || math.IsNaN(*prev) {
		fs.RSIPrev = domain.F64(50)
	} else {
		fs.RSIPrev = prev
	}
}

func computeMACD(fs *domain.FactorSet, closes []float64) {
	m := formulas.ComputeMACD(closes, 12, 26, 9)
	if !m.Available {
		return
	}
	fs.MACD = domain.F64(m.Value)
	fs.MACDSignal = domain.F64(m.Signal)
	fs.MACDHist = domain.F64(m.Hist)
	fs.MACDHistPrev = domain.F64(m.HistPrev)
}

func computeVolatilityRisk(fs *domain.FactorSet, closes []float64) {
	returns := formulas.Returns(closes)
	if len(returns) == 0 {
		return
	}
	fs.VolAnnualized = domain.F64(formulas.AnnualizedVolatility(returns))
	fs.Sharpe = domain.F64(formulas.Sharpe(returns))
	cum := formulas.CumulativeReturns(returns)
	fs.MaxDrawdown = domain.F64(formulas.MaxDrawdown(cum))
}

func computeVolume(fs *domain.FactorSet, candles []domain.Candle) {
	n := len(candles)
	today := candles[n-1].Volume

	if n >= 21 {
		window := candles[n-21 : n-1]
		avg20 := meanVolume(window)
		if avg20 != 0 {
			fs.VolumeRatio = domain.F64(today / avg20)
		} else {
			fs.VolumeRatio = domain.F64(1)
		}
	} else {
		fs.VolumeRatio = domain.F64(1)
	}

	if n >= 6 {
		window := candles[n-6 : n-1]
		avg5 := meanVolume(window)
		fs.VolBreakout = avg5 > 0 && today > avg5*1.2
	}
}

func meanVolume(candles []domain.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}

func computeTrend(fs *domain.FactorSet, closes []float64) {
	n := len(closes)
	window := 20
	if n < window {
		window = n
	}
	sample := closes[n-window:]

	slope, r2 := formulas.LinearRegression(sample)
	fs.Slope = domain.F64(slope)
	fs.R2 = domain.F64(r2)

	anchor := sample[0]
	if anchor != 0 {
		fs.SlopePct = domain.F64(slope / anchor * 100)
	} else {
		fs.SlopePct = domain.F64(0)
	}
}

func computePriceLocation(fs *domain.FactorSet, closes []float64) {
	n := len(closes)
	window := 20
	if n < window {
		window = n
	}
	sample := closes[n-window:]

	hi, lo := sample[0], sample[0]
	for _, c := range sample {
		if c > hi {
			hi = c
		}
		if c < lo {
			lo = c
		}
	}
	last := closes[n-1]

	if hi != lo {
		fs.PricePosition = domain.F64((last - lo) / (hi - lo))
	} else {
		fs.PricePosition = domain.F64(0.5)
	}
	fs.PriceBreakout = hi != 0 && last >= hi*0.95
}

func computeMovingAverages(fs *domain.FactorSet, closes []float64) {
	fs.MA5 = formulas.SMA(closes, 5)
	fs.MA10 = formulas.SMA(closes, 10)
	fs.MA20 = formulas.SMA(closes, 20)
}

func computeFundamentals(fs *domain.FactorSet, in Input, industry Industry) {
	if in.Basic == nil {
		return
	}
	fs.PE = in.Basic.PE
	fs.PETTM = in.Basic.PETTM
	fs.PB = in.Basic.PB
	fs.MarketCap = in.Basic.TotalMV

	switch {
	case in.Basic.PB != nil && in.Basic.PE != nil && *in.Basic.PE != 0:
		fs.ROE = domain.F64(*in.Basic.PB / *in.Basic.PE * 100)
	default:
		fs.ROE = domain.F64(0)
	}

	fs.RevenueGrowth = domain.F64(industry.DefaultRevenueGrowth)
	fs.ProfitGrowth = domain.F64(industry.DefaultRevenueGrowth * 0.8)

	fs.PEPercentile = domain.F64(peePercentile(fs.PE, industry))
}

// peePercentile maps a PE ratio to [0,1] via the industry's piecewise
// bands; a negative PE (loss-making company) maps to 0 rather than being
// excluded, so a downstream strategy can still give it a small valuation
// base rather than eliminate it outright.
func peePercentile(pe *float64, industry Industry) float64 {
	if pe == nil {
		return 0.5
	}
	v := *pe
	switch {
	case v < 0:
		return 0
	case v <= industry.PELow:
		return 1.0
	case v <= industry.PEMid:
		return 1.0 - 0.5*(v-industry.PELow)/(industry.PEMid-industry.PELow)
	case v <= industry.PEHigh:
		return 0.5 - 0.5*(v-industry.PEMid)/(industry.PEHigh-industry.PEMid)
	default:
		return 0.0
	}
}

// computeSectorHeat derives sector_heat from a 5-day sector price change
// and the sector's main fund flow, via an additive rubric: change-5d bands
// contribute up to 50, main-flow bands up to 50, floored at 20.
func computeSectorHeat(fs *domain.FactorSet, in Input) {
	fs.SectorChange5D = in.SectorChange5D
	fs.SectorMainFlow = in.SectorMainFlow

	if in.SectorChange5D == nil && in.SectorMainFlow == nil {
		fs.SectorHeat = domain.F64(50) // neutral fallback: no sector data available
		return
	}

	score := 20.0
	if in.SectorChange5D != nil {
		score += changeBand(*in.SectorChange5D)
	}
	if in.SectorMainFlow != nil {
		score += flowBand(*in.SectorMainFlow)
	}
	if score > 100 {
		score = 100
	}
	fs.SectorHeat = domain.F64(score)
}

func changeBand(change5d float64) float64 {
	switch {
	case change5d >= 10:
		return 50
	case change5d >= 5:
		return 35
	case change5d >= 2:
		return 20
	case change5d >= 0:
		return 10
	default:
		return 0
	}
}

func flowBand(mainFlow float64) float64 {
	switch {
	case mainFlow >= 5e8:
		return 50
	case mainFlow >= 1e8:
		return 35
	case mainFlow >= 0:
		return 15
	default:
		return 0
	}
}
