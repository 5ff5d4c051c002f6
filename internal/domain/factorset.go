package domain

// FactorSet is the per-stock feature vector FactorEngine computes from a
// candle/fundamental/flow slice. Every numeric factor field is a pointer so
// "insufficient input" can be represented as nil rather than a sentinel zero
// value that a downstream strategy filter might mistake for a real reading;
// the breakout flags are plain bools that default to false.
type FactorSet struct {
	Code string

	// Momentum
	Ret20D *float64
	Ret60D *float64

	// Oscillators
	RSI     *float64
	RSIPrev *float64

	// MACD
	MACD         *float64
	MACDSignal   *float64
	MACDHist     *float64
	MACDHistPrev *float64

	// Volatility / risk
	VolAnnualized *float64
	Sharpe        *float64
	MaxDrawdown   *float64

	// Volume
	VolumeRatio *float64
	VolBreakout bool

	// Trend
	Slope    *float64
	R2       *float64
	SlopePct *float64

	// Price location / breakout
	PricePosition *float64
	PriceBreakout bool

	// Moving averages
	MA5  *float64
	MA10 *float64
	MA20 *float64

	// Fundamentals
	PE             *float64
	PETTM          *float64
	PB             *float64
	ROE            *float64
	MarketCap      *float64
	RevenueGrowth  *float64
	ProfitGrowth   *float64
	PEPercentile   *float64

	// Sector heat
	SectorChange5D *float64
	SectorMainFlow *float64
	SectorHeat     *float64

	// CurrentPrice is the last close, needed downstream for target/stop/buy
	// point computation; not itself a "factor" but travels with the set.
	CurrentPrice float64

	// Empty reports a FactorSet built from too little history (<=2 candles)
	// to compute anything meaningful; StrategyEvaluator treats it as an
	// automatic Filtered candidate.
	Empty bool
}

// F64 is a small helper for building *float64 literals inline.
func F64(v float64) *float64 { return &v }

// OrDefault returns *p, or def when p is nil.
func OrDefault(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
