package ingestion

import (
	"testing"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources/router"
	"github.com/aristath/ashare-screener/internal/store"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.New(store.Config{Path: "file::memory:?cache=shared", Profile: store.ProfileStandard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	r := router.New(time.Minute, zerolog.Nop())
	return New(st, r, Config{}, zerolog.Nop())
}

func TestPartialBasicUpsertPreservesValuationFields(t *testing.T) {
	e := newTestEngine(t)

	full := domain.DailyBasic{
		Code: "000001", Date: "2026-07-01", Close: 10.5,
		PE: domain.F64(15.2), PB: domain.F64(1.8), TotalMV: domain.F64(5e9),
	}
	require.NoError(t, e.store.UpsertDailyBasics([]domain.DailyBasic{full}))

	cst := time.FixedZone("CST", 8*3600)
	snapTS, _ := time.ParseInLocation("2006-01-02 15:04:05", "2026-07-01 09:26:00", cst)
	snap := domain.AuctionSnapshot{
		Code: "000001", SnapshotTS: snapTS, Price: 10.6, TurnoverRate: 1.1, VolumeRatio: 1.3, FloatShare: 1e8,
	}

	require.NoError(t, e.partialBasicUpsert(snap))

	got, ok, err := e.store.LatestDailyBasic("000001")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.PE)
	require.NotNil(t, got.TurnoverRate)
	if *got.PE != 15.2 {
		t.Fatalf("auction refresh must not clobber PE, got %v", *got.PE)
	}
	if *got.TurnoverRate != 1.1 {
		t.Fatalf("expected turnover_rate from auction snapshot, got %v", *got.TurnoverRate)
	}
}
