package formulas

import (
	"github.com/markcheno/go-talib"
)

func isNaN(f float64) bool {
	return f != f
}

// RSI returns the latest Wilder RSI over the given period, or nil when there
// is not enough data (len(closes) < period+1).
func RSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}
	r := talib.Rsi(closes, period)
	if len(r) == 0 || isNaN(r[len(r)-1]) {
		return nil
	}
	v := r[len(r)-1]
	return &v
}

// RSIPrev returns the RSI value one bar before the latest, or nil.
func RSIPrev(closes []float64, period int) *float64 {
	if len(closes) < period+2 {
		return nil
	}
	return RSI(closes[:len(closes)-1], period)
}

// EMA returns the latest exponential moving average, falling back to a simple
// mean when there isn't enough history for a proper EMA warm-up.
func EMA(closes []float64, period int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	if len(closes) < period {
		m := Mean(closes)
		return &m
	}
	e := talib.Ema(closes, period)
	if len(e) == 0 || isNaN(e[len(e)-1]) {
		m := Mean(closes[len(closes)-period:])
		return &m
	}
	v := e[len(e)-1]
	return &v
}

// SMA returns the latest simple moving average over period, or nil if there
// isn't enough data.
func SMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	s := talib.Sma(closes, period)
	if len(s) == 0 || isNaN(s[len(s)-1]) {
		return nil
	}
	v := s[len(s)-1]
	return &v
}

// MACD holds the three standard MACD outputs plus the prior bar's histogram,
// used to detect a histogram turn-up (hist[t] > hist[t-1]).
type MACD struct {
	Value     float64
	Signal    float64
	Hist      float64
	HistPrev  float64
	Available bool
}

// ComputeMACD runs MACD(fast, slow, signal) over closes and reports the
// latest and prior histogram values.
func ComputeMACD(closes []float64, fast, slow, signal int) MACD {
	minLen := slow + signal + 1
	if len(closes) < minLen {
		return MACD{}
	}
	macd, macdSignal, macdHist := talib.Macd(closes, fast, slow, signal)
	n := len(macdHist)
	if n < 2 || isNaN(macdHist[n-1]) || isNaN(macdHist[n-2]) {
		return MACD{}
	}
	return MACD{
		Value:     macd[n-1],
		Signal:    macdSignal[n-1],
		Hist:      macdHist[n-1],
		HistPrev:  macdHist[n-2],
		Available: true,
	}
}

// TurnedUp reports whether the MACD histogram turned up this bar regardless
// of sign (hist[t] > hist[t-1]).
func (m MACD) TurnedUp() bool {
	return m.Available && m.Hist > m.HistPrev
}
