package strategy

import (
	"testing"

	"github.com/aristath/ashare-screener/internal/domain"
)

func momentumBreakoutCandidate() domain.FactorSet {
	return domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		Ret20D: domain.F64(25), RSI: domain.F64(60), RSIPrev: domain.F64(55),
		MACDHist: domain.F64(0.1), MACDHistPrev: domain.F64(0.05),
		PriceBreakout: true, VolBreakout: true,
		VolumeRatio: domain.F64(1.8), VolAnnualized: domain.F64(40),
		SlopePct: domain.F64(0.5), R2: domain.F64(0.6), Sharpe: domain.F64(1.2),
		SectorHeat: domain.F64(70), SectorMainFlow: domain.F64(2e8),
		MA5: domain.F64(9.8), MA10: domain.F64(9.5), MA20: domain.F64(9.2),
		MaxDrawdown: domain.F64(5),
	}
}

func TestMomentumBreakoutPassesWithQualifyingFactors(t *testing.T) {
	ev := New()
	score, err := ev.Evaluate(momentumBreakoutCandidate(), domain.StrategyMomentumBreakout, "平安银行", "银行")
	if err != nil {
		t.Fatalf("expected candidate to pass momentum breakout filters, got %v", err)
	}
	if score.CompositeScore <= 0 || score.CompositeScore > 100 {
		t.Fatalf("composite score out of bounds: %v", score.CompositeScore)
	}
	if len(score.SelectionReason) == 0 {
		t.Fatalf("expected at least one selection reason")
	}
	if len(score.SelectionReason) > 4 {
		t.Fatalf("selection reasons must be capped at 4, got %d", len(score.SelectionReason))
	}
}

func TestMomentumBreakoutFailsWithoutPriceBreakout(t *testing.T) {
	ev := New()
	fs := momentumBreakoutCandidate()
	fs.PriceBreakout = false
	_, err := ev.Evaluate(fs, domain.StrategyMomentumBreakout, "平安银行", "银行")
	if err != domain.ErrFiltered {
		t.Fatalf("expected ErrFiltered when price_breakout is missing, got %v", err)
	}
}

func TestMomentumBreakoutFailsOnExtremeRSI(t *testing.T) {
	ev := New()
	fs := momentumBreakoutCandidate()
	fs.RSI = domain.F64(90)
	_, err := ev.Evaluate(fs, domain.StrategyMomentumBreakout, "平安银行", "银行")
	if err != domain.ErrFiltered {
		t.Fatalf("expected ErrFiltered when rsi > 85, got %v", err)
	}
}

func TestEmptyFactorSetIsAlwaysFiltered(t *testing.T) {
	ev := New()
	_, err := ev.Evaluate(domain.FactorSet{Code: "000001", Empty: true}, domain.StrategyMomentumBreakout, "", "")
	if err != domain.ErrFiltered {
		t.Fatalf("expected ErrFiltered for an Empty FactorSet, got %v", err)
	}
}

func TestValueGrowthPassesWithNoFinancialsKnown(t *testing.T) {
	ev := New()
	fs := domain.FactorSet{Code: "000001", CurrentPrice: 10, VolAnnualized: domain.F64(30)}
	score, err := ev.Evaluate(fs, domain.StrategyValueGrowth, "", "")
	if err != nil {
		t.Fatalf("expected no hard filter to apply when all financials are unknown, got %v", err)
	}
	if score.CompositeScore < 0 {
		t.Fatalf("unexpected negative composite score")
	}
}

func TestValueGrowthFailsOnLowROE(t *testing.T) {
	ev := New()
	fs := domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		ROE: domain.F64(3), PE: domain.F64(20), RevenueGrowth: domain.F64(10),
	}
	_, err := ev.Evaluate(fs, domain.StrategyValueGrowth, "", "")
	if err != domain.ErrFiltered {
		t.Fatalf("expected ErrFiltered on roe < 10, got %v", err)
	}
}

func TestBottomFishingRequiresRisingLowRSI(t *testing.T) {
	ev := New()
	fs := domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		RSI: domain.F64(30), RSIPrev: domain.F64(25),
		PricePosition: domain.F64(0.3), Ret20D: domain.F64(-10),
		MACDHist: domain.F64(0.05), MACDHistPrev: domain.F64(-0.02),
		VolumeRatio: domain.F64(1.2), PE: domain.F64(20), VolAnnualized: domain.F64(40),
	}
	score, err := ev.Evaluate(fs, domain.StrategyBottomFishing, "", "")
	if err != nil {
		t.Fatalf("expected bottom-fishing candidate to pass, got %v", err)
	}
	if score.CompositeScore <= 0 {
		t.Fatalf("expected positive composite score with bottom-fishing bonuses applied")
	}
}

func TestBottomFishingFailsWhenRSIFalling(t *testing.T) {
	ev := New()
	fs := domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		RSI: domain.F64(30), RSIPrev: domain.F64(35), // falling, not rising
		PricePosition: domain.F64(0.3), Ret20D: domain.F64(-10),
		MACDHist: domain.F64(0.05), MACDHistPrev: domain.F64(-0.02),
		VolumeRatio: domain.F64(1.2), PE: domain.F64(20), VolAnnualized: domain.F64(40),
	}
	_, err := ev.Evaluate(fs, domain.StrategyBottomFishing, "", "")
	if err != domain.ErrFiltered {
		t.Fatalf("expected ErrFiltered when rsi is falling, got %v", err)
	}
}

func TestPresentationTargetAndStopLossBands(t *testing.T) {
	ev := New()
	fs := momentumBreakoutCandidate()
	score, err := ev.Evaluate(fs, domain.StrategyMomentumBreakout, "", "")
	if err != nil {
		t.Fatalf("unexpected filter: %v", err)
	}
	if score.TargetPrice <= score.CurrentPrice {
		t.Fatalf("expected target price above current price for a qualifying score, got %v vs %v", score.TargetPrice, score.CurrentPrice)
	}
	if score.StopLossPrice >= score.CurrentPrice {
		t.Fatalf("expected stop-loss below current price, got %v vs %v", score.StopLossPrice, score.CurrentPrice)
	}
	if score.SellPoint != score.TargetPrice {
		t.Fatalf("sell_point must equal target_price")
	}
	if score.BuyPoint > score.CurrentPrice {
		t.Fatalf("buy_point must be capped at current price, got %v vs %v", score.BuyPoint, score.CurrentPrice)
	}
}

func TestMomentumScoreMatchesDeterministicScenario(t *testing.T) {
	fs := domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		Ret20D: domain.F64(12), RSI: domain.F64(55), MACDHist: domain.F64(0.1),
		PriceBreakout: true, VolBreakout: true,
	}
	if got := momentumScore(fs); got != 45.0 {
		t.Fatalf("momentum_score = 10+10+5+10+10 = 45 for this scenario, got %v", got)
	}
}

func TestMomentumScoreCapsAtFifty(t *testing.T) {
	fs := domain.FactorSet{
		Code: "000001", CurrentPrice: 10,
		Ret20D: domain.F64(25), RSI: domain.F64(55), MACDHist: domain.F64(0.1),
		PriceBreakout: true, VolBreakout: true,
	}
	if got := momentumScore(fs); got != 50.0 {
		t.Fatalf("expected momentum_score capped at 50, got %v", got)
	}
}

func TestUnknownStrategyIDReturnsFormatError(t *testing.T) {
	ev := New()
	_, err := ev.Evaluate(momentumBreakoutCandidate(), domain.StrategyID(99), "", "")
	if !domain.IsKind(err, domain.KindFormatError) {
		t.Fatalf("expected KindFormatError for an unknown strategy id, got %v", err)
	}
}
