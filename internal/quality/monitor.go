// Package quality computes the data-quality rubric: coverage, completeness,
// consistency, timeliness, and accuracy metrics over the Store's recent
// window, each direction-aware (most want higher-is-better, timeliness and
// the error-rate family want lower-is-better), each carrying an alert level
// derived from its deviation from threshold, rolled up into a weighted
// overall_score and a quality band. Grounded on the data quality monitor
// carried over from the prior Python service this engine replaces.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/aristath/ashare-screener/internal/store"
	"github.com/google/uuid"
)

// windowDays is the default lookback for every metric (spec default: 7).
const windowDays = 7

// hotStockCodes is the curated watchlist expected to have both a Candle and
// a FundFlow row every trading day; a gap here is a stronger signal than a
// gap in the long tail of the universe.
var hotStockCodes = []string{"600519", "000001", "600036", "000858", "601318"}

// Store is the slice of *store.Store the monitor needs.
type Store interface {
	CountStocks() (int, error)
	KlineStats(since string) (stocks, records int, err error)
	FlowStats(since string) (stocks, records int, err error)
	HotStockKlineFlowCounts(code, since string) (klineCount, flowCount int, err error)
	MissingCounts(since string) (totalStocks, missingKline, missingFlow int, err error)
	ErrorCounts(since string) (klineTotal, klineErrors, flowTotal, flowErrors int, err error)
	ConsistencyCounts(since string) (totalStocks, matchedStocks int, err error)
	DateRange(table, since string) (minDate, maxDate string, distinctDays int, err error)
	LastCollectionTime() (time.Time, bool, error)
	WeeklyCollectionCount() (int, error)
	AccuracyCounts(since string) (klineTotal, klineValid, flowTotal, flowValid int, err error)
	SaveQualityMetrics([]store.QualityMetric) error
}

// direction says whether a metric's value is healthy when high or low.
type direction int

const (
	higherIsBetter direction = iota
	lowerIsBetter
)

// metricSpec is one row of the rubric: its threshold, direction, and
// contribution weight to overall_score.
type metricSpec struct {
	name      string
	threshold float64
	dir       direction
	weight    float64
}

// weighted rubric; weights sum to 1.00.
var specs = []metricSpec{
	{"stock_coverage", 95, higherIsBetter, 0.10},
	{"kline_coverage", 95, higherIsBetter, 0.15},
	{"flow_coverage", 90, higherIsBetter, 0.15},
	{"hot_stock_coverage", 95, higherIsBetter, 0.10},
	{"missing_rate", 5, lowerIsBetter, 0.10},
	{"error_rate", 2, lowerIsBetter, 0.10},
	{"data_consistency", 90, higherIsBetter, 0.10},
	{"time_range_consistency", 90, higherIsBetter, 0.05},
	{"collection_delay_hours", 24, lowerIsBetter, 0.05},
	{"update_frequency_days", 1.5, lowerIsBetter, 0.05},
	{"data_accuracy", 95, higherIsBetter, 0.05},
}

// Report is one monitoring pass's output.
type Report struct {
	Metrics      []store.QualityMetric
	OverallScore float64
	QualityLevel string
	GeneratedAt  time.Time
}

// Monitor computes and persists the data-quality rubric.
type Monitor struct {
	store            Store
	expectedUniverse int
	now              func() time.Time
}

// New constructs a Monitor. expectedUniverse bounds stock_coverage's
// denominator; pass the size of the intended tracked universe (A-share
// listings run in the low thousands).
func New(st Store, expectedUniverse int) *Monitor {
	if expectedUniverse <= 0 {
		expectedUniverse = 5000
	}
	return &Monitor{store: st, expectedUniverse: expectedUniverse, now: time.Now}
}

// Run computes every metric, persists the rubric, and returns the report.
func (m *Monitor) Run() (Report, error) {
	now := m.now()
	since := now.AddDate(0, 0, -windowDays).Format("2006-01-02")

	values, err := m.computeValues(since, now)
	if err != nil {
		return Report{}, fmt.Errorf("quality: compute metrics: %w", err)
	}

	metrics := make([]store.QualityMetric, 0, len(specs))
	var overall float64
	for _, sp := range specs {
		v := values[sp.name]
		metrics = append(metrics, store.QualityMetric{
			ID:         uuid.NewString(),
			Metric:     sp.name,
			Value:      v,
			Threshold:  sp.threshold,
			IsHealthy:  isHealthy(v, sp.threshold, sp.dir),
			AlertLevel: alertLevel(v, sp.threshold, sp.dir),
			CreatedAt:  now,
		})
		overall += sp.weight * normalize(v, sp.threshold, sp.dir)
	}
	level := qualityLevel(overall)

	metrics = append(metrics, store.QualityMetric{
		ID: uuid.NewString(), Metric: "overall_score", Value: overall, Threshold: 95,
		IsHealthy: overall >= 60, AlertLevel: alertLevel(overall, 95, higherIsBetter), CreatedAt: now,
	})

	if err := m.store.SaveQualityMetrics(metrics); err != nil {
		return Report{}, fmt.Errorf("quality: save metrics: %w", err)
	}
	return Report{Metrics: metrics, OverallScore: overall, QualityLevel: level, GeneratedAt: now}, nil
}

// computeValues runs every sub-calculation against Store and returns each
// metric's raw value keyed by name.
func (m *Monitor) computeValues(since string, now time.Time) (map[string]float64, error) {
	out := map[string]float64{}

	totalStocks, err := m.store.CountStocks()
	if err != nil {
		return nil, err
	}
	out["stock_coverage"] = pct(min(totalStocks, m.expectedUniverse), m.expectedUniverse)

	if totalStocks == 0 {
		totalStocks = 1 // avoid division by zero; coverage above is already 0
	}

	klineStocks, _, err := m.store.KlineStats(since)
	if err != nil {
		return nil, err
	}
	out["kline_coverage"] = pct(klineStocks, totalStocks)

	flowStocks, _, err := m.store.FlowStats(since)
	if err != nil {
		return nil, err
	}
	out["flow_coverage"] = pct(flowStocks, totalStocks)

	hotWithBoth, hotTracked := 0, 0
	for _, code := range hotStockCodes {
		k, f, err := m.store.HotStockKlineFlowCounts(code, since)
		if err != nil {
			return nil, err
		}
		if k == 0 && f == 0 {
			continue
		}
		hotTracked++
		if k > 0 && f > 0 {
			hotWithBoth++
		}
	}
	if hotTracked == 0 {
		out["hot_stock_coverage"] = 100
	} else {
		out["hot_stock_coverage"] = pct(hotWithBoth, hotTracked)
	}

	missingTotal, missingKline, missingFlow, err := m.store.MissingCounts(since)
	if err != nil {
		return nil, err
	}
	if missingTotal == 0 {
		out["missing_rate"] = 0
	} else {
		out["missing_rate"] = pct(missingKline+missingFlow, 2*missingTotal)
	}

	klineTotal, klineErrors, flowTotal, flowErrors, err := m.store.ErrorCounts(since)
	if err != nil {
		return nil, err
	}
	denom := klineTotal + flowTotal
	if denom == 0 {
		out["error_rate"] = 0
	} else {
		out["error_rate"] = pct(klineErrors+flowErrors, denom)
	}

	consistTotal, matched, err := m.store.ConsistencyCounts(since)
	if err != nil {
		return nil, err
	}
	if consistTotal == 0 {
		out["data_consistency"] = 100
	} else {
		out["data_consistency"] = pct(matched, consistTotal)
	}

	out["time_range_consistency"] = m.timeRangeConsistency(since)

	if last, ok, err := m.store.LastCollectionTime(); err != nil {
		return nil, err
	} else if ok {
		out["collection_delay_hours"] = now.Sub(last).Hours()
	} else {
		out["collection_delay_hours"] = 9999
	}

	weekly, err := m.store.WeeklyCollectionCount()
	if err != nil {
		return nil, err
	}
	if weekly == 0 {
		out["update_frequency_days"] = 999
	} else {
		out["update_frequency_days"] = 7.0 / float64(weekly)
	}

	priceAccuracy, flowAccuracy, err := m.accuracy(since)
	if err != nil {
		return nil, err
	}
	out["data_accuracy"] = (priceAccuracy + flowAccuracy) / 2

	return out, nil
}

func (m *Monitor) timeRangeConsistency(since string) float64 {
	kMin, kMax, kDays, err := m.store.DateRange("klines", since)
	if err != nil || kDays == 0 || kMin == "" {
		return 100
	}
	fMin, fMax, fDays, err := m.store.DateRange("fund_flow", since)
	if err != nil || fDays == 0 || fMin == "" {
		return 0
	}

	overlapStart := kMin
	if fMin > overlapStart {
		overlapStart = fMin
	}
	overlapEnd := kMax
	if fMax < overlapEnd {
		overlapEnd = fMax
	}
	if overlapStart > overlapEnd {
		return 0
	}
	overlapDays := dateSpanDays(overlapStart, overlapEnd) + 1
	klineRangeDays := dateSpanDays(kMin, kMax) + 1
	if klineRangeDays <= 0 {
		return 100
	}
	return pct(overlapDays, klineRangeDays)
}

func dateSpanDays(from, to string) int {
	f, err1 := time.Parse("2006-01-02", from)
	t, err2 := time.Parse("2006-01-02", to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(t.Sub(f).Hours() / 24)
}

func (m *Monitor) accuracy(since string) (price, flow float64, err error) {
	klineTotal, klineValid, flowTotal, flowValid, err := m.store.AccuracyCounts(since)
	if err != nil {
		return 0, 0, err
	}
	if klineTotal == 0 {
		price = 100
	} else {
		price = pct(klineValid, klineTotal)
	}
	if flowTotal == 0 {
		flow = 100
	} else {
		flow = pct(flowValid, flowTotal)
	}
	return price, flow, nil
}

func pct(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}

// isHealthy is direction-aware: lower-is-better metrics pass at or below
// threshold, higher-is-better metrics pass at or above it.
func isHealthy(value, threshold float64, dir direction) bool {
	if dir == lowerIsBetter {
		return value <= threshold
	}
	return value >= threshold
}

// alertLevel grades an unhealthy metric's severity by its relative deviation
// from threshold; a healthy metric carries no alert.
func alertLevel(value, threshold float64, dir direction) string {
	if isHealthy(value, threshold, dir) {
		return "none"
	}
	deviation := math.Abs(value-threshold) / math.Max(threshold, 1e-9)
	switch {
	case deviation > 0.30:
		return "critical"
	case deviation > 0.20:
		return "error"
	case deviation > 0.10:
		return "warning"
	default:
		return "info"
	}
}

// normalize maps a raw metric value onto a 0-100 contribution to
// overall_score, direction-aware and clamped. Lower-is-better metrics are
// scored against twice their threshold so that sitting exactly at threshold
// (the boundary of "healthy") lands at 50, not 0 — a value well inside the
// healthy range should score close to 100, not collapse near the boundary.
func normalize(value, threshold float64, dir direction) float64 {
	var score float64
	if dir == lowerIsBetter {
		score = 100 - value/(2*threshold)*100
	} else {
		score = value / threshold * 100
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// qualityLevel bands overall_score per the fixed cutoffs.
func qualityLevel(score float64) string {
	switch {
	case score >= 95:
		return "excellent"
	case score >= 85:
		return "good"
	case score >= 70:
		return "fair"
	case score >= 60:
		return "passing"
	default:
		return "failing"
	}
}
