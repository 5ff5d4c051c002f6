package router

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAdapter is a minimal in-memory sources.Adapter double.
type stubAdapter struct {
	name      string
	available bool
	stocks    []domain.Stock
	err       error
	calls     int
}

func (s *stubAdapter) Name() string    { return s.name }
func (s *stubAdapter) Available() bool { return s.available }
func (s *stubAdapter) ListStocks(ctx context.Context) ([]domain.Stock, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.stocks, nil
}
func (s *stubAdapter) DailyByDate(ctx context.Context, date string) ([]domain.Candle, error) { return nil, nil }
func (s *stubAdapter) DailyByCode(ctx context.Context, code, start, end string) ([]domain.Candle, error) {
	return nil, nil
}
func (s *stubAdapter) FundFlowByDate(ctx context.Context, date string) ([]domain.FundFlow, error) { return nil, nil }
func (s *stubAdapter) DailyBasicByDate(ctx context.Context, date string) ([]domain.DailyBasic, error) {
	return nil, nil
}
func (s *stubAdapter) MarketMoneyFlow(ctx context.Context, date string) (domain.MarketMoneyFlow, error) {
	return domain.MarketMoneyFlow{}, nil
}
func (s *stubAdapter) SectorMoneyFlow(ctx context.Context, date string) ([]domain.SectorMoneyFlow, error) {
	return nil, nil
}
func (s *stubAdapter) TradeCalendar(ctx context.Context, start, end string) ([]string, error) { return nil, nil }
func (s *stubAdapter) AuctionByDate(ctx context.Context, date string, codes []string) ([]domain.AuctionSnapshot, error) {
	return nil, nil
}
func (s *stubAdapter) RealtimeQuotes(ctx context.Context, codes []string) ([]domain.Candle, error) {
	return nil, nil
}

func TestRouterFailsOverToHealthySource(t *testing.T) {
	failing := &stubAdapter{name: "primary", available: true, err: domain.NewError(domain.KindIO, "primary", "ListStocks", nil)}
	working := &stubAdapter{name: "secondary", available: true, stocks: []domain.Stock{{Code: "000001"}}}

	r := New(time.Minute, zerolog.Nop(), failing, working)
	got, err := r.ListStocks(context.Background(), "primary")
	require.NoError(t, err)
	assert.Equal(t, []domain.Stock{{Code: "000001"}}, got)
	assert.Equal(t, 1, failing.calls)
}

func TestRouterCachesSuccessAndSkipsSecondCall(t *testing.T) {
	working := &stubAdapter{name: "primary", available: true, stocks: []domain.Stock{{Code: "000001"}}}
	r := New(time.Minute, zerolog.Nop(), working)

	_, err := r.ListStocks(context.Background(), "primary")
	require.NoError(t, err)
	_, err = r.ListStocks(context.Background(), "primary")
	require.NoError(t, err)

	assert.Equal(t, 1, working.calls, "second call should be served from cache")
}

func TestRouterDoesNotCacheEmptyResult(t *testing.T) {
	empty := &stubAdapter{name: "primary", available: true, stocks: nil}
	r := New(time.Minute, zerolog.Nop(), empty)

	_, err := r.ListStocks(context.Background(), "primary")
	require.Error(t, err) // no adapter produced a non-empty result
	_, err = r.ListStocks(context.Background(), "primary")
	require.Error(t, err)

	assert.Equal(t, 2, empty.calls, "empty result must not be cached")
}

func TestRouterHealthRollup(t *testing.T) {
	failing := &stubAdapter{name: "flaky", available: true, err: domain.NewError(domain.KindIO, "flaky", "ListStocks", nil)}
	r := New(time.Minute, zerolog.Nop(), failing)

	for i := 0; i < 5; i++ {
		_, _ = r.ListStocks(context.Background(), "")
	}

	reports := r.Health()
	require.Len(t, reports, 1)
	assert.Equal(t, domain.HealthUnavailable, reports[0].State)
	assert.Equal(t, 5, reports[0].Failed)
}

func TestRouterRespectsExpiredDeadline(t *testing.T) {
	working := &stubAdapter{name: "primary", available: true, stocks: []domain.Stock{{Code: "000001"}}}
	r := New(time.Minute, zerolog.Nop(), working)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := r.ListStocks(ctx, "primary")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindTimeout))
	assert.Equal(t, 0, working.calls, "expired deadline must stop before touching any adapter")
}
