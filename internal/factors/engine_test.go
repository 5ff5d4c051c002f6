package factors

import (
	"testing"

	"github.com/aristath/ashare-screener/internal/domain"
)

func candlesFromCloses(closes []float64) []domain.Candle {
	out := make([]domain.Candle, len(closes))
	for i, c := range closes {
		out[i] = domain.Candle{
			Code: "000001", Date: "2026-01-01",
			Open: c, High: c * 1.01, Low: c * 0.99, Close: c,
			Volume: 1_000_000, Amount: c * 1_000_000,
		}
	}
	return out
}

func TestComputeEmptyBelowThreeCandles(t *testing.T) {
	e := New()

	fs := e.Compute(Input{Code: "000001"})
	if !fs.Empty {
		t.Fatalf("zero candles must yield Empty FactorSet")
	}

	fs = e.Compute(Input{Code: "000001", Candles: candlesFromCloses([]float64{10, 10.5})})
	if !fs.Empty {
		t.Fatalf("two candles must yield Empty FactorSet")
	}
	if fs.CurrentPrice != 10.5 {
		t.Fatalf("expected CurrentPrice from last candle, got %v", fs.CurrentPrice)
	}
}

func TestComputeUptrendProducesPositiveMomentumAndTrend(t *testing.T) {
	e := New()
	closes := make([]float64, 40)
	price := 10.0
	for i := range closes {
		price *= 1.01
		closes[i] = price
	}

	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses(closes)})
	if fs.Empty {
		t.Fatalf("40 candles should produce a non-empty FactorSet")
	}
	if fs.Slope == nil || *fs.Slope <= 0 {
		t.Fatalf("expected positive slope for a steady uptrend, got %v", fs.Slope)
	}
	if fs.R2 == nil || *fs.R2 < 0.9 {
		t.Fatalf("expected high r2 for a clean linear uptrend, got %v", fs.R2)
	}
	if fs.RSI == nil || *fs.RSI <= 50 {
		t.Fatalf("expected RSI above 50 for a steady uptrend, got %v", fs.RSI)
	}
	if fs.MA5 == nil || fs.MA10 == nil || fs.MA20 == nil {
		t.Fatalf("expected all moving averages populated with 40 candles")
	}
}

func TestVolumeRatioDefaultsToOneWithoutEnoughHistory(t *testing.T) {
	e := New()
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses([]float64{10, 10.2, 10.4, 10.1, 10.3})})
	if fs.VolumeRatio == nil || *fs.VolumeRatio != 1 {
		t.Fatalf("expected volume_ratio default of 1 with <21 candles, got %v", fs.VolumeRatio)
	}
}

func TestVolBreakoutTrue(t *testing.T) {
	e := New()
	candles := candlesFromCloses([]float64{10, 10.1, 10.2, 10.1, 10.3, 10.4})
	candles[len(candles)-1].Volume = 5_000_000 // today's volume spikes well above the trailing 5-day average
	fs := e.Compute(Input{Code: "000001", Candles: candles})
	if !fs.VolBreakout {
		t.Fatalf("expected vol_breakout when today's volume exceeds 1.2x the trailing 5-day average")
	}
}

func TestPriceBreakoutAtWindowHigh(t *testing.T) {
	e := New()
	closes := []float64{10, 10.2, 10.4, 10.6, 10.8, 11.0}
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses(closes)})
	if !fs.PriceBreakout {
		t.Fatalf("last close at the window high should trigger price_breakout")
	}
}

func TestROEFallsBackToPBOverPE(t *testing.T) {
	e := New()
	basic := &domain.DailyBasic{Code: "000001", Date: "2026-01-05", PE: domain.F64(10), PB: domain.F64(2)}
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses([]float64{10, 10.1, 10.2, 10.3, 10.4}), Basic: basic})
	if fs.ROE == nil || *fs.ROE != 20 {
		t.Fatalf("expected roe = pb/pe*100 = 20, got %v", fs.ROE)
	}
}

func TestROEDefaultsToZeroOnZeroPE(t *testing.T) {
	e := New()
	basic := &domain.DailyBasic{Code: "000001", Date: "2026-01-05", PE: domain.F64(0), PB: domain.F64(2)}
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses([]float64{10, 10.1, 10.2, 10.3, 10.4}), Basic: basic})
	if fs.ROE == nil || *fs.ROE != 0 {
		t.Fatalf("expected roe default of 0 on zero pe, got %v", fs.ROE)
	}
}

func TestPEPercentileNegativePEMapsToZero(t *testing.T) {
	got := peePercentile(domain.F64(-5), defaultIndustry)
	if got != 0 {
		t.Fatalf("expected pe_percentile 0 for negative pe, got %v", got)
	}
}

func TestPEPercentileMonotoneAcrossBands(t *testing.T) {
	low := peePercentile(domain.F64(10), defaultIndustry)
	mid := peePercentile(domain.F64(30), defaultIndustry)
	high := peePercentile(domain.F64(50), defaultIndustry)
	veryHigh := peePercentile(domain.F64(100), defaultIndustry)
	if !(low > mid && mid > high && high > veryHigh) {
		t.Fatalf("expected pe_percentile to decrease monotonically with pe: %v %v %v %v", low, mid, high, veryHigh)
	}
}

func TestSectorHeatClampedToRange(t *testing.T) {
	e := New()
	fs := e.Compute(Input{
		Code:           "000001",
		Candles:        candlesFromCloses([]float64{10, 10.1, 10.2, 10.3}),
		SectorChange5D: domain.F64(20),
		SectorMainFlow: domain.F64(1e9),
	})
	if fs.SectorHeat == nil || *fs.SectorHeat != 100 {
		t.Fatalf("expected sector_heat clamped to 100 for strong band hits, got %v", fs.SectorHeat)
	}

	fs = e.Compute(Input{
		Code:           "000001",
		Candles:        candlesFromCloses([]float64{10, 10.1, 10.2, 10.3}),
		SectorChange5D: domain.F64(-10),
		SectorMainFlow: domain.F64(-1e9),
	})
	if fs.SectorHeat == nil || *fs.SectorHeat != 20 {
		t.Fatalf("expected sector_heat floored at 20 for weak bands, got %v", fs.SectorHeat)
	}
}

func TestSectorHeatNeutralWithoutSectorData(t *testing.T) {
	e := New()
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses([]float64{10, 10.1, 10.2, 10.3})})
	if fs.SectorHeat == nil || *fs.SectorHeat != 50 {
		t.Fatalf("expected sector_heat neutral default of 50 without sector data, got %v", fs.SectorHeat)
	}
}

func TestMaxWindowTruncatesToSixty(t *testing.T) {
	e := New()
	closes := make([]float64, 200)
	for i := range closes {
		closes[i] = 10 + float64(i)*0.01
	}
	fs := e.Compute(Input{Code: "000001", Candles: candlesFromCloses(closes)})
	if fs.Empty {
		t.Fatalf("200 candles should not be treated as insufficient")
	}
	if fs.Ret60D != nil {
		t.Fatalf("ret_60d requires >60 candles within the truncated 60-candle window, so it must stay nil")
	}
}

func TestSetIndustryBandsOverridesDefault(t *testing.T) {
	e := New()
	e.SetIndustryBands(map[string]Industry{
		"白酒": {PELow: 30, PEMid: 60, PEHigh: 100, DefaultRevenueGrowth: 15},
	})
	basic := &domain.DailyBasic{Code: "600519", Date: "2026-01-05", PE: domain.F64(40)}
	fs := e.Compute(Input{Code: "600519", Industry: "白酒", Candles: candlesFromCloses([]float64{10, 10.1, 10.2, 10.3}), Basic: basic})
	if fs.PEPercentile == nil || *fs.PEPercentile <= 0.5 {
		t.Fatalf("pe=40 should sit in the upper band of an overridden 30/60/100 table, got %v", fs.PEPercentile)
	}
	if fs.RevenueGrowth == nil || *fs.RevenueGrowth != 15 {
		t.Fatalf("expected overridden industry default revenue growth, got %v", fs.RevenueGrowth)
	}
}
