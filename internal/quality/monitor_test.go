package quality

import (
	"testing"
	"time"

	"github.com/aristath/ashare-screener/internal/store"
)

// fakeStore is an in-memory Store double driven entirely by the counts a
// test wants to assert against, rather than real table contents.
type fakeStore struct {
	totalStocks                             int
	klineStocks, klineRecords               int
	flowStocks, flowRecords                 int
	hotKline                                map[string][2]int // code -> (kline count, flow count)
	missingTotal, missingKline, missingFlow int
	klineTotal, klineErrors                 int
	flowTotal, flowErrors                   int
	consistTotal, consistMatched            int
	klineRange, flowRange                   [3]any // min, max, distinctDays
	lastCollection                          time.Time
	hasCollection                           bool
	weeklyCollections                       int
	accKlineTotal, accKlineValid            int
	accFlowTotal, accFlowValid              int

	saved []store.QualityMetric
}

func (f *fakeStore) CountStocks() (int, error) { return f.totalStocks, nil }

func (f *fakeStore) KlineStats(string) (int, int, error) { return f.klineStocks, f.klineRecords, nil }

func (f *fakeStore) FlowStats(string) (int, int, error) { return f.flowStocks, f.flowRecords, nil }

func (f *fakeStore) HotStockKlineFlowCounts(code, since string) (int, int, error) {
	v, ok := f.hotKline[code]
	if !ok {
		return 0, 0, nil
	}
	return v[0], v[1], nil
}

func (f *fakeStore) MissingCounts(string) (int, int, int, error) {
	return f.missingTotal, f.missingKline, f.missingFlow, nil
}

func (f *fakeStore) ErrorCounts(string) (int, int, int, int, error) {
	return f.klineTotal, f.klineErrors, f.flowTotal, f.flowErrors, nil
}

func (f *fakeStore) ConsistencyCounts(string) (int, int, error) {
	return f.consistTotal, f.consistMatched, nil
}

func (f *fakeStore) DateRange(table, since string) (string, string, int, error) {
	if table == "klines" {
		return asStr(f.klineRange[0]), asStr(f.klineRange[1]), asInt(f.klineRange[2]), nil
	}
	return asStr(f.flowRange[0]), asStr(f.flowRange[1]), asInt(f.flowRange[2]), nil
}

func asStr(v any) string {
	if v == nil {
		return ""
	}
	return v.(string)
}

func asInt(v any) int {
	if v == nil {
		return 0
	}
	return v.(int)
}

func (f *fakeStore) LastCollectionTime() (time.Time, bool, error) {
	return f.lastCollection, f.hasCollection, nil
}

func (f *fakeStore) WeeklyCollectionCount() (int, error) { return f.weeklyCollections, nil }

func (f *fakeStore) AccuracyCounts(string) (int, int, int, int, error) {
	return f.accKlineTotal, f.accKlineValid, f.accFlowTotal, f.accFlowValid, nil
}

func (f *fakeStore) SaveQualityMetrics(metrics []store.QualityMetric) error {
	f.saved = append(f.saved, metrics...)
	return nil
}

func healthyStore() *fakeStore {
	return &fakeStore{
		totalStocks: 100,
		klineStocks: 98, klineRecords: 700,
		flowStocks: 96, flowRecords: 700,
		hotKline: map[string][2]int{
			"600519": {7, 7}, "000001": {7, 7}, "600036": {7, 7}, "000858": {7, 7}, "601318": {7, 7},
		},
		missingTotal: 100, missingKline: 1, missingFlow: 2,
		klineTotal: 700, klineErrors: 2, flowTotal: 700, flowErrors: 3,
		consistTotal: 100, consistMatched: 95,
		klineRange: [3]any{"2026-07-01", "2026-07-30", 22},
		flowRange:  [3]any{"2026-07-01", "2026-07-30", 22},
		lastCollection: time.Now().Add(-1 * time.Hour), hasCollection: true,
		weeklyCollections: 7,
		accKlineTotal: 700, accKlineValid: 690,
		accFlowTotal: 700, accFlowValid: 680,
	}
}

func TestRunProducesExcellentScoreForHealthyStore(t *testing.T) {
	st := healthyStore()
	m := New(st, 100)
	report, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OverallScore < 95 {
		t.Fatalf("expected overall_score >= 95 for an all-healthy store, got %.2f", report.OverallScore)
	}
	if report.QualityLevel != "excellent" {
		t.Fatalf("expected quality level 'excellent', got %q", report.QualityLevel)
	}
	if len(st.saved) != len(specs)+1 {
		t.Fatalf("expected %d persisted metrics (rubric + overall_score), got %d", len(specs)+1, len(st.saved))
	}
	for _, m := range st.saved {
		if m.Metric != "overall_score" && !m.IsHealthy {
			t.Errorf("expected metric %q to be healthy in an all-healthy store, value=%.2f threshold=%.2f", m.Metric, m.Value, m.Threshold)
		}
	}
}

func TestRunFlagsStaleCollectionAsUnhealthy(t *testing.T) {
	st := healthyStore()
	st.lastCollection = time.Now().Add(-72 * time.Hour)
	m := New(st, 100)
	report, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var found bool
	for _, metric := range report.Metrics {
		if metric.Metric == "collection_delay_hours" {
			found = true
			if metric.IsHealthy {
				t.Fatalf("expected collection_delay_hours to be unhealthy at 72h stale, threshold=%.2f", metric.Threshold)
			}
			if metric.AlertLevel == "none" {
				t.Fatalf("expected a non-none alert level for a stale collection")
			}
		}
	}
	if !found {
		t.Fatalf("expected a collection_delay_hours metric in the report")
	}
}

func TestRunHandlesEmptyStoreWithoutError(t *testing.T) {
	st := &fakeStore{}
	m := New(st, 100)
	report, err := m.Run()
	if err != nil {
		t.Fatalf("unexpected error on an empty store: %v", err)
	}
	if report.QualityLevel != "failing" {
		t.Fatalf("expected an empty store to band as 'failing', got %q", report.QualityLevel)
	}
}

func TestIsHealthyDirectionAware(t *testing.T) {
	if !isHealthy(96, 95, higherIsBetter) {
		t.Fatalf("96 should be healthy against a 95 higher-is-better threshold")
	}
	if isHealthy(94, 95, higherIsBetter) {
		t.Fatalf("94 should be unhealthy against a 95 higher-is-better threshold")
	}
	if !isHealthy(4, 5, lowerIsBetter) {
		t.Fatalf("4 should be healthy against a 5 lower-is-better threshold")
	}
	if isHealthy(6, 5, lowerIsBetter) {
		t.Fatalf("6 should be unhealthy against a 5 lower-is-better threshold")
	}
}

func TestAlertLevelBandsByDeviation(t *testing.T) {
	cases := []struct {
		value, threshold float64
		dir              direction
		want             string
	}{
		{100, 100, higherIsBetter, "none"},
		{91, 100, higherIsBetter, "info"},
		{89, 100, higherIsBetter, "warning"},
		{79, 100, higherIsBetter, "error"},
		{69, 100, higherIsBetter, "critical"},
	}
	for _, c := range cases {
		if got := alertLevel(c.value, c.threshold, c.dir); got != c.want {
			t.Errorf("alertLevel(%.0f, %.0f) = %q, want %q", c.value, c.threshold, got, c.want)
		}
	}
}

func TestQualityLevelBands(t *testing.T) {
	cases := map[float64]string{96: "excellent", 86: "good", 71: "fair", 61: "passing", 10: "failing"}
	for score, want := range cases {
		if got := qualityLevel(score); got != want {
			t.Errorf("qualityLevel(%.0f) = %q, want %q", score, got, want)
		}
	}
}
