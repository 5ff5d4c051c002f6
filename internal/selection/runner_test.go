package selection

import (
	"context"
	"testing"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/factors"
	"github.com/aristath/ashare-screener/internal/strategy"
	"github.com/rs/zerolog"
)

// fakeStore is a minimal in-memory Store double for exercising Runner
// without a real sqlite-backed store.
type fakeStore struct {
	stocks     []domain.Stock
	candles    map[string][]domain.Candle
	basics     map[string]domain.DailyBasic
	flows      map[string]domain.FundFlow
	saved      []domain.ScoredStock
}

func (f *fakeStore) ListStocks() ([]domain.Stock, error) { return f.stocks, nil }

func (f *fakeStore) DistinctTradingDaysSince(string) (int, error) {
	max := 0
	for _, cs := range f.candles {
		if len(cs) > max {
			max = len(cs)
		}
	}
	return max, nil
}

func (f *fakeStore) CandleCountSince(code, since string) (int, error) {
	return len(f.candles[code]), nil
}

func (f *fakeStore) QueryCandles(code string, limit int) ([]domain.Candle, error) {
	cs := f.candles[code]
	if limit > 0 && len(cs) > limit {
		cs = cs[len(cs)-limit:]
	}
	return cs, nil
}

func (f *fakeStore) LatestDailyBasic(code string) (domain.DailyBasic, bool, error) {
	b, ok := f.basics[code]
	return b, ok, nil
}

func (f *fakeStore) LatestFundFlow(code string) (domain.FundFlow, bool, error) {
	fl, ok := f.flows[code]
	return fl, ok, nil
}

func (f *fakeStore) SectorMoneyFlowHistory(string, int) ([]domain.SectorMoneyFlow, error) {
	return nil, nil
}

func (f *fakeStore) SaveScoredStocks(s []domain.ScoredStock) error {
	f.saved = append(f.saved, s...)
	return nil
}

func uptrendCandles(n int, code string) []domain.Candle {
	out := make([]domain.Candle, n)
	price := 10.0
	for i := 0; i < n; i++ {
		price *= 1.015
		out[i] = domain.Candle{Code: code, Date: "2026-01-01", Open: price, High: price * 1.01, Low: price * 0.99, Close: price, Volume: 2_000_000, Amount: price * 2_000_000}
	}
	return out
}

func newTestRunner(st *fakeStore) *Runner {
	return New(st, factors.New(), strategy.New(), Config{Concurrency: 2, BatchSize: 1}, zerolog.Nop())
}

func TestRunSelectsQualifyingStocksAndPersists(t *testing.T) {
	st := &fakeStore{
		stocks: []domain.Stock{
			{Code: "600519", Name: "贵州茅台", Industry: ""},
			{Code: "000001", Name: "平安银行", Industry: ""},
		},
		candles: map[string][]domain.Candle{
			"600519": uptrendCandles(40, "600519"),
			"000001": uptrendCandles(40, "000001"),
		},
		basics: map[string]domain.DailyBasic{},
		flows:  map[string]domain.FundFlow{},
	}
	r := newTestRunner(st)

	var lastProcessed, lastSelected int
	results, runID, err := r.Run(context.Background(), Params{
		StrategyID: domain.StrategyMomentumBreakout, MinScore: 0, MaxResults: 10,
		Progress: func(processed, total, selected int) {
			if processed < lastProcessed || selected < lastSelected {
				t.Errorf("progress must be monotonic: got processed=%d selected=%d after processed=%d selected=%d", processed, selected, lastProcessed, lastSelected)
			}
			lastProcessed, lastSelected = processed, selected
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID == "" {
		t.Fatalf("expected a non-empty run id")
	}
	if lastProcessed != 2 {
		t.Fatalf("expected final progress tick to report processed=2, got %d", lastProcessed)
	}
	if len(st.saved) != len(results) {
		t.Fatalf("expected all returned results persisted, got %d saved vs %d returned", len(st.saved), len(results))
	}
}

func TestRunWithZeroMaxResultsReturnsEmptyAndWritesNoHistory(t *testing.T) {
	st := &fakeStore{
		stocks:  []domain.Stock{{Code: "600519", Name: "贵州茅台"}},
		candles: map[string][]domain.Candle{"600519": uptrendCandles(40, "600519")},
	}
	r := newTestRunner(st)
	results, runID, err := r.Run(context.Background(), Params{StrategyID: domain.StrategyMomentumBreakout, MaxResults: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results when max_results=0, got %d", len(results))
	}
	if runID == "" {
		t.Fatalf("expected a run id even when max_results=0")
	}
	if len(st.saved) != 0 {
		t.Fatalf("expected no history written when max_results=0, got %d saved rows", len(st.saved))
	}
}

func TestBucketAndLimitReturnsEmptyForZeroMaxResults(t *testing.T) {
	scored := []domain.ScoredStock{{Code: "600001", CompositeScore: 90}}
	if got := bucketAndLimit(scored, 0); len(got) != 0 {
		t.Fatalf("expected an empty slice for max_results=0, got %d", len(got))
	}
}

func TestRunEmptyUniverseReturnsNoResults(t *testing.T) {
	st := &fakeStore{}
	r := newTestRunner(st)
	results, runID, err := r.Run(context.Background(), Params{StrategyID: domain.StrategyMomentumBreakout, MaxResults: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results for an empty universe, got %d", len(results))
	}
	if runID == "" {
		t.Fatalf("expected a run id even for an empty universe")
	}
}

func TestRunHonoursMinScoreFilter(t *testing.T) {
	st := &fakeStore{
		stocks:  []domain.Stock{{Code: "600519", Name: "贵州茅台"}},
		candles: map[string][]domain.Candle{"600519": uptrendCandles(40, "600519")},
	}
	r := newTestRunner(st)
	results, _, err := r.Run(context.Background(), Params{StrategyID: domain.StrategyMomentumBreakout, MinScore: 1000, MaxResults: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected min_score=1000 to filter out every candidate, got %d", len(results))
	}
}

func TestExchangeBucketClassification(t *testing.T) {
	cases := map[string]string{
		"600519": "primary",
		"000001": "secondary",
		"300750": "secondary",
		"900001": "other",
	}
	for code, want := range cases {
		if got := exchangeBucket(code); got != want {
			t.Errorf("exchangeBucket(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestBucketAndLimitPoolsShortfallAcrossBuckets(t *testing.T) {
	mk := func(code string, score float64) domain.ScoredStock {
		return domain.ScoredStock{Code: code, CompositeScore: score}
	}
	scored := []domain.ScoredStock{
		mk("600001", 90), mk("600002", 85), // primary: 2
		mk("000001", 80), // secondary: 1
	}
	got := bucketAndLimit(scored, 9)
	if len(got) != 3 {
		t.Fatalf("expected all 3 candidates pooled in when buckets fall short of maxResults/3, got %d", len(got))
	}
	if got[0].CompositeScore < got[1].CompositeScore {
		t.Fatalf("expected score-descending order in the final pooled result")
	}
}

func TestBucketAndLimitRespectsMaxResults(t *testing.T) {
	var scored []domain.ScoredStock
	for i := 0; i < 20; i++ {
		scored = append(scored, domain.ScoredStock{Code: "600001", CompositeScore: float64(100 - i)})
	}
	got := bucketAndLimit(scored, 5)
	if len(got) != 5 {
		t.Fatalf("expected exactly maxResults=5 results, got %d", len(got))
	}
}
