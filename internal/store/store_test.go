package store

import (
	"testing"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: "file::memory:?cache=shared", Profile: ProfileStandard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertStockAndGet(t *testing.T) {
	s := newTestStore(t)

	st := domain.Stock{Code: "000001", RawCode: "000001.SZ", Name: "Ping An Bank", Exchange: domain.ExchangeSecondary, Industry: "Banking"}
	require.NoError(t, s.UpsertStock(st))

	got, ok, err := s.GetStock("000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	// Re-upsert with a changed name must replace, not duplicate.
	st.Name = "Ping An Bank Co"
	require.NoError(t, s.UpsertStock(st))
	all, err := s.ListStocks()
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, "Ping An Bank Co", all[0].Name)
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	candles := []domain.Candle{
		{Code: "000001", Date: "2026-07-01", Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 1000, Amount: 10500},
		{Code: "000001", Date: "2026-07-02", Open: 10.5, High: 12, Low: 10.2, Close: 11.8, Volume: 2000, Amount: 23600},
	}
	require.NoError(t, s.UpsertCandles(candles))
	require.NoError(t, s.UpsertCandles(candles)) // re-ingest same rows: no-op

	got, err := s.QueryCandles("000001", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-07-01", got[0].Date)
	assert.Equal(t, "2026-07-02", got[1].Date)
}

func TestMaxDateAndExists(t *testing.T) {
	s := newTestStore(t)

	max, err := s.MaxCandleDate("000001")
	require.NoError(t, err)
	assert.Equal(t, "", max, "empty table has no max date")

	require.NoError(t, s.UpsertCandles([]domain.Candle{
		{Code: "000001", Date: "2026-07-01", Close: 10},
		{Code: "000001", Date: "2026-07-03", Close: 11},
	}))

	max, err = s.MaxCandleDate("000001")
	require.NoError(t, err)
	assert.Equal(t, "2026-07-03", max)

	exists, err := s.Exists("klines", Row{"code": "000001", "date": "2026-07-01"})
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists("klines", Row{"code": "000001", "date": "2026-07-02"})
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDailyBasicRawUpsertOverwritesValuationFields(t *testing.T) {
	s := newTestStore(t)

	full := domain.DailyBasic{
		Code: "000001", Date: "2026-07-01", Close: 10,
		PE: domain.F64(15.2), PB: domain.F64(1.8), TotalMV: domain.F64(5e9),
		TurnoverRate: domain.F64(1.1), VolumeRatio: domain.F64(1.0),
	}
	require.NoError(t, s.UpsertDailyBasics([]domain.DailyBasic{full}))

	// An auction-derived partial refresh only ever touches
	// turnover_rate/volume_ratio/float_share (nil PE/PB here), but since
	// UpsertBatch is a column-complete replace, the ingestion engine must
	// read-merge before writing; this test documents the raw overwrite
	// behavior a caller must guard against by merging first.
	partial := full
	partial.PE = nil
	partial.PB = nil
	partial.VolumeRatio = domain.F64(1.42)
	require.NoError(t, s.UpsertDailyBasics([]domain.DailyBasic{partial}))

	got, ok, err := s.LatestDailyBasic("000001")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, got.PE)
	assert.Equal(t, 1.42, *got.VolumeRatio)
}

func TestCollectionRunRoundTrip(t *testing.T) {
	s := newTestStore(t)

	run := domain.CollectionRun{
		ID: "run-1", Type: domain.RunIncremental, StartDate: "2026-07-01", EndDate: "2026-07-30",
		Status: domain.RunRunning, StockCount: 100, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, s.SaveCollectionRun(run))

	run.Advance(domain.RunCompleted)
	run.KlineCount = 5000
	require.NoError(t, s.SaveCollectionRun(run))

	got, ok, err := s.LatestCollectionRun()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RunCompleted, got.Status)
	assert.Equal(t, 5000, got.KlineCount)
}

func TestSelectionHistoryRoundTrip(t *testing.T) {
	s := newTestStore(t)

	scored := domain.ScoredStock{
		Code: "000001", Name: "Ping An Bank", StrategyID: domain.StrategyMomentumBreakout,
		CompositeScore: 78.5, SelectionReason: []string{"RSI breakout", "volume surge"},
		RiskLevel: domain.RiskMed, HoldingPeriod: domain.HoldingMid, RunID: "run-abc", CreatedAt: time.Now(),
	}
	require.NoError(t, s.SaveScoredStocks([]domain.ScoredStock{scored}))

	hist, err := s.SelectionHistory(domain.StrategyMomentumBreakout, 10)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, 78.5, hist[0].CompositeScore)
	assert.Equal(t, []string{"RSI breakout", "volume surge"}, hist[0].SelectionReason)
}

func TestQualityMetricsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.SaveQualityMetrics([]QualityMetric{
		{ID: "q1", Metric: "coverage", Value: 0.98, Threshold: 0.9, IsHealthy: true, AlertLevel: "none", CreatedAt: time.Now()},
	}))

	got, err := s.LatestQualityMetrics(5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsHealthy)
}
