// Package strategy turns a FactorSet into a ScoredStock under one of the
// five fixed scoring strategies: component scores, a strategy-weighted
// composite, hard filters, and presentation fields (risk level, holding
// period, target/stop/buy/sell points, selection reasons).
package strategy

import (
	"github.com/aristath/ashare-screener/internal/domain"
)

// weights is one strategy's non-zero component weight vector. Fields left
// at zero simply don't contribute to the composite.
type weights struct {
	momentum, trend, sector, fundamental           float64
	valuation, quality, growth, volume, sentiment, risk float64
}

var strategyWeights = map[domain.StrategyID]weights{
	domain.StrategyMomentumBreakout: {momentum: 0.40, volume: 0.25, sentiment: 0.20, trend: 0.10, quality: 0.05},
	domain.StrategyTrendFollowing:   {trend: 0.35, momentum: 0.25, quality: 0.20, valuation: 0.15, volume: 0.05},
	domain.StrategyValueGrowth:      {fundamental: 0.80, valuation: 0.20},
	domain.StrategySuperLeader:      {momentum: 0.5, volume: 0.3, sentiment: 0.1, trend: 0.1},
	domain.StrategyBottomFishing:    {valuation: 0.32, risk: 0.22, volume: 0.18, quality: 0.13, momentum: 0.10, sentiment: 0.05},
}

// Evaluator computes ScoredStocks. Stateless: safe to share across
// concurrent SelectionRunner workers.
type Evaluator struct{}

// New constructs an Evaluator.
func New() *Evaluator { return &Evaluator{} }

// Evaluate scores fs under strategyID for stock (code/name/industry carried
// through for the result row). Returns domain.ErrFiltered if fs is Empty or
// fails the strategy's hard filters.
func (ev *Evaluator) Evaluate(fs domain.FactorSet, strategyID domain.StrategyID, name, industry string) (domain.ScoredStock, error) {
	if fs.Empty {
		return domain.ScoredStock{}, domain.ErrFiltered
	}

	c := components{
		momentum:    momentumScore(fs),
		trend:       trendScore(fs),
		sector:      clamp(domain.OrDefault(fs.SectorHeat, 50) * 0.25),
		fundamental: fundamentalScore(fs),
		valuation:   valuationScore(fs),
		quality:     qualityScore(fs),
		growth:      growthScore(fs),
		volume:      volumeScore(fs),
		sentiment:   sentimentScore(fs),
		risk:        riskScore(fs),
	}

	w, ok := strategyWeights[strategyID]
	if !ok {
		return domain.ScoredStock{}, domain.NewError(domain.KindFormatError, "", "Evaluate", nil)
	}
	composite := clamp(
		w.momentum*c.momentum + w.trend*c.trend + w.sector*c.sector + w.fundamental*c.fundamental +
			w.valuation*c.valuation + w.quality*c.quality + w.growth*c.growth + w.volume*c.volume +
			w.sentiment*c.sentiment + w.risk*c.risk,
	)
	if strategyID == domain.StrategyBottomFishing {
		composite = clamp(composite + bottomFishingBonus(fs))
	}

	if !passesHardFilters(fs, strategyID, c) {
		return domain.ScoredStock{}, domain.ErrFiltered
	}

	score := domain.ScoredStock{
		Code: fs.Code, Name: name, Industry: industry, StrategyID: strategyID,
		CompositeScore:   composite,
		MomentumScore:    c.momentum,
		TrendScore:       c.trend,
		SectorScore:      c.sector,
		FundamentalScore: c.fundamental,
		ValuationScore:   c.valuation,
		QualityScore:     c.quality,
		GrowthScore:      c.growth,
		VolumeScore:      c.volume,
		SentimentScore:   c.sentiment,
		RiskScore:        c.risk,
		CurrentPrice:     fs.CurrentPrice,
	}
	fillPresentation(&score, fs, composite, c.risk)
	score.SelectionReason = selectionReasons(fs, composite)
	return score, nil
}

type components struct {
	momentum, trend, sector, fundamental float64
	valuation, quality, growth, volume, sentiment, risk float64
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func momentumScore(fs domain.FactorSet) float64 {
	score := 0.0
	ret20 := domain.OrDefault(fs.Ret20D, 0)
	switch {
	case ret20 > 20:
		score += 15
	case ret20 > 10:
		score += 10
	case ret20 > 5:
		score += 5
	case ret20 > 0:
		score += 2
	}
	rsi := domain.OrDefault(fs.RSI, 50)
	switch {
	case rsi > 40 && rsi < 70:
		score += 10
	case rsi > 30 && rsi < 80:
		score += 5
	}
	if domain.OrDefault(fs.MACDHist, 0) > 0 {
		score += 5
	}
	if fs.PriceBreakout {
		score += 10
	}
	if fs.VolBreakout {
		score += 10
	}
	if score > 50 {
		score = 50
	}
	return score
}

func trendScore(fs domain.FactorSet) float64 {
	score := 50.0
	slopePct := domain.OrDefault(fs.SlopePct, 0)
	switch {
	case slopePct >= 1.0:
		score += 25
	case slopePct >= 0.4:
		score += 15
	case slopePct >= 0.1:
		score += 5
	case slopePct < 0:
		score -= 15
	}
	r2 := domain.OrDefault(fs.R2, 0)
	switch {
	case r2 >= 0.7:
		score += 15
	case r2 >= 0.45:
		score += 8
	}
	if domain.OrDefault(fs.Sharpe, 0) > 1 {
		score += 10
	}
	return clamp(score)
}

func fundamentalScore(fs domain.FactorSet) float64 {
	score := 40.0
	roe := domain.OrDefault(fs.ROE, 0)
	switch {
	case roe >= 20:
		score += 25
	case roe >= 10:
		score += 15
	case roe > 0:
		score += 5
	default:
		score -= 10
	}

	pe := fs.PE
	switch {
	case pe == nil:
		// no penalty or bonus when unknown
	case *pe < 0:
		score -= 5
	case *pe <= 25:
		score += 20
	case *pe <= 50:
		score += 10
	default:
		score -= 10
	}

	growth := domain.OrDefault(fs.RevenueGrowth, 0)
	switch {
	case growth >= 20:
		score += 15
	case growth >= 5:
		score += 5
	}
	return clamp(score)
}

func valuationScore(fs domain.FactorSet) float64 {
	pct := domain.OrDefault(fs.PEPercentile, 0.5)
	score := pct * 80
	if fs.PE != nil && *fs.PE < 0 {
		score += 10 // small positive base so loss-makers are not eliminated outright
	}
	return clamp(score)
}

func qualityScore(fs domain.FactorSet) float64 {
	score := 50.0
	roe := domain.OrDefault(fs.ROE, 0)
	switch {
	case roe >= 20:
		score += 30
	case roe >= 10:
		score += 15
	case roe <= 0:
		score -= 20
	}
	if domain.OrDefault(fs.VolAnnualized, 40) < 30 {
		score += 10
	}
	return clamp(score)
}

func growthScore(fs domain.FactorSet) float64 {
	score := 40.0
	rev := domain.OrDefault(fs.RevenueGrowth, 0)
	profit := domain.OrDefault(fs.ProfitGrowth, 0)
	switch {
	case rev >= 30:
		score += 35
	case rev >= 15:
		score += 20
	case rev >= 5:
		score += 8
	case rev < 0:
		score -= 15
	}
	if profit > rev {
		score += 10 // profit outpacing revenue growth
	}
	return clamp(score)
}

func volumeScore(fs domain.FactorSet) float64 {
	score := 40.0
	ratio := domain.OrDefault(fs.VolumeRatio, 1)
	switch {
	case ratio >= 2:
		score += 40
	case ratio >= 1.5:
		score += 25
	case ratio >= 1.1:
		score += 10
	case ratio < 0.7:
		score -= 15
	}
	if fs.VolBreakout {
		score += 15
	}
	return clamp(score)
}

func sentimentScore(fs domain.FactorSet) float64 {
	score := 45.0
	flow := domain.OrDefault(fs.SectorMainFlow, 0)
	switch {
	case flow >= 5e8:
		score += 35
	case flow >= 1e8:
		score += 20
	case flow >= 0:
		score += 5
	default:
		score -= 15
	}
	return clamp(score)
}

func riskScore(fs domain.FactorSet) float64 {
	score := 70.0
	vol := domain.OrDefault(fs.VolAnnualized, 40)
	switch {
	case vol <= 25:
		score += 20
	case vol <= 45:
		score += 5
	case vol > 70:
		score -= 25
	case vol > 55:
		score -= 10
	}
	dd := domain.OrDefault(fs.MaxDrawdown, 20)
	switch {
	case dd <= 10:
		score += 10
	case dd > 30:
		score -= 20
	case dd > 20:
		score -= 10
	}
	return clamp(score)
}

// bottomFishingBonus adds a focused bonus schedule for strategy 5: low
// price_position, a low-but-rising RSI, a MACD histogram turning up, a mild
// volume uplift, and a low PE.
func bottomFishingBonus(fs domain.FactorSet) float64 {
	bonus := 0.0
	pos := domain.OrDefault(fs.PricePosition, 0.5)
	if pos <= 0.3 {
		bonus += 10
	} else if pos <= 0.45 {
		bonus += 5
	}
	rsi := domain.OrDefault(fs.RSI, 50)
	rsiPrev := domain.OrDefault(fs.RSIPrev, 50)
	if rsi >= 18 && rsi <= 45 && rsi > rsiPrev {
		bonus += 10
	}
	histUp := domain.OrDefault(fs.MACDHist, 0) > domain.OrDefault(fs.MACDHistPrev, 0)
	if histUp {
		bonus += 8
	}
	ratio := domain.OrDefault(fs.VolumeRatio, 1)
	if ratio >= 1.05 && ratio <= 1.5 {
		bonus += 5
	}
	if fs.PE != nil && *fs.PE > 0 && *fs.PE <= 35 {
		bonus += 7
	}
	return bonus
}

// passesHardFilters applies strategyID's hard filter set from the fixed
// strategy table; a false result means the candidate must be dropped.
func passesHardFilters(fs domain.FactorSet, strategyID domain.StrategyID, c components) bool {
	rsi := domain.OrDefault(fs.RSI, 50)
	vol := domain.OrDefault(fs.VolAnnualized, 40)

	switch strategyID {
	case domain.StrategyMomentumBreakout:
		return c.momentum >= 30 && rsi <= 85 && vol <= 80 && fs.PriceBreakout

	case domain.StrategyTrendFollowing:
		slopePct := domain.OrDefault(fs.SlopePct, 0)
		r2 := domain.OrDefault(fs.R2, 0)
		dd := domain.OrDefault(fs.MaxDrawdown, 0)
		return slopePct >= 0.25 && r2 >= 0.45 && dd <= 15

	case domain.StrategyValueGrowth:
		if fs.ROE == nil && fs.PE == nil && fs.RevenueGrowth == nil {
			return true // financials unavailable: no hard filter applies
		}
		roe := domain.OrDefault(fs.ROE, 0)
		pe := domain.OrDefault(fs.PE, 0)
		growth := domain.OrDefault(fs.RevenueGrowth, 0)
		return roe >= 10 && pe <= 50 && growth >= 5

	case domain.StrategySuperLeader:
		ret20 := domain.OrDefault(fs.Ret20D, 0)
		ret60 := domain.OrDefault(fs.Ret60D, 0)
		ratio := domain.OrDefault(fs.VolumeRatio, 1)
		return c.momentum >= 35 && (ret20 >= 20 || ret60 >= 50) && ratio >= 1.5 && rsi >= 50 && vol <= 80

	case domain.StrategyBottomFishing:
		pos := domain.OrDefault(fs.PricePosition, 0.5)
		rsiPrev := domain.OrDefault(fs.RSIPrev, 50)
		ret20 := domain.OrDefault(fs.Ret20D, 0)
		ratio := domain.OrDefault(fs.VolumeRatio, 1)
		histTurning := domain.OrDefault(fs.MACDHist, 0) > domain.OrDefault(fs.MACDHistPrev, 0) || domain.OrDefault(fs.MACDHist, 0) > 0
		peOK := fs.PE == nil || *fs.PE <= 35
		return rsi >= 18 && rsi <= 45 && rsi > rsiPrev && pos <= 0.45 &&
			ret20 >= -30 && ret20 <= 10 && histTurning && ratio >= 1.05 && peOK && vol <= 85

	default:
		return false
	}
}

// fillPresentation derives risk_level, holding_period, and the four price
// points onto score, given fs and the already-computed composite/risk.
func fillPresentation(score *domain.ScoredStock, fs domain.FactorSet, composite, risk float64) {
	vol := domain.OrDefault(fs.VolAnnualized, 40)
	switch {
	case composite >= 75 && vol <= 35:
		score.RiskLevel = domain.RiskLow
	case composite >= 60:
		score.RiskLevel = domain.RiskMed
	default:
		score.RiskLevel = domain.RiskHigh
	}

	techAvgOfTwo := (score.MomentumScore + score.TrendScore) / 2
	fundAvg := (score.FundamentalScore + score.GrowthScore) / 2
	delta := techAvgOfTwo - fundAvg
	switch {
	case delta > 20:
		score.HoldingPeriod = domain.HoldingShort
	case delta < -20:
		score.HoldingPeriod = domain.HoldingLong
	default:
		score.HoldingPeriod = domain.HoldingMid
	}

	current := fs.CurrentPrice
	score.TargetPrice = current * (1 + targetBand(composite))
	score.StopLossPrice = current * (1 - stopLossBand(score.RiskLevel))

	switch {
	case composite >= 80 && fs.MA5 != nil:
		score.BuyPoint = *fs.MA5
	case composite >= 60 && fs.MA10 != nil:
		score.BuyPoint = *fs.MA10
	case fs.MA20 != nil:
		score.BuyPoint = *fs.MA20
	default:
		score.BuyPoint = current
	}
	if score.BuyPoint > current {
		score.BuyPoint = current
	}
	score.SellPoint = score.TargetPrice
}

func targetBand(composite float64) float64 {
	switch {
	case composite >= 90:
		return 0.25
	case composite >= 80:
		return 0.15
	case composite >= 70:
		return 0.10
	case composite >= 60:
		return 0.05
	default:
		return 0
	}
}

func stopLossBand(risk domain.RiskLevel) float64 {
	switch risk {
	case domain.RiskLow:
		return 0.08
	case domain.RiskMed:
		return 0.10
	default:
		return 0.15
	}
}

// selectionReasons builds an ordered, de-duplicated, length-capped (<=4)
// list of short phrases explaining why a candidate scored well.
func selectionReasons(fs domain.FactorSet, composite float64) []string {
	var reasons []string
	add := func(phrase string) {
		if len(reasons) >= 4 {
			return
		}
		for _, r := range reasons {
			if r == phrase {
				return
			}
		}
		reasons = append(reasons, phrase)
	}

	if fs.PriceBreakout {
		add("价格突破")
	}
	rsi := domain.OrDefault(fs.RSI, 50)
	if rsi >= 50 && rsi <= 75 {
		add("RSI强势")
	}
	if fs.VolBreakout {
		add("放量突破")
	}
	if domain.OrDefault(fs.SectorHeat, 0) >= 60 {
		add("热门板块")
	}
	roe := domain.OrDefault(fs.ROE, 0)
	pePct := domain.OrDefault(fs.PEPercentile, 0.5)
	if roe >= 10 && pePct >= 0.5 {
		add("绩优低估")
	}
	if domain.OrDefault(fs.SlopePct, 0) >= 0.4 {
		add("趋势向上")
	}
	if composite >= 80 && len(reasons) == 0 {
		add("综合评分领先")
	}
	return reasons
}
