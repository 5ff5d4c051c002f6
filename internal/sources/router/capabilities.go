package router

import (
	"context"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources"
)

// Preferred pins a capability's first-try adapter name; "" uses
// registration order. A realistic caller (IngestionEngine) passes "primary"
// for bulk pulls and leaves auction refresh unpinned so either adapter with
// the freshest health can serve it.

func (r *Router) ListStocks(ctx context.Context, preferred string) ([]domain.Stock, error) {
	return call(ctx, r, sources.CapListStocks, preferred, nil,
		func(v []domain.Stock) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.Stock, error) { return a.ListStocks(ctx) })
}

func (r *Router) DailyByDate(ctx context.Context, preferred, date string) ([]domain.Candle, error) {
	return call(ctx, r, sources.CapDailyByDate, preferred, []any{date},
		func(v []domain.Candle) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.Candle, error) { return a.DailyByDate(ctx, date) })
}

func (r *Router) DailyByCode(ctx context.Context, preferred, code, start, end string) ([]domain.Candle, error) {
	return call(ctx, r, sources.CapDailyByCode, preferred, []any{code, start, end},
		func(v []domain.Candle) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.Candle, error) { return a.DailyByCode(ctx, code, start, end) })
}

func (r *Router) FundFlowByDate(ctx context.Context, preferred, date string) ([]domain.FundFlow, error) {
	return call(ctx, r, sources.CapFundFlowByDate, preferred, []any{date},
		func(v []domain.FundFlow) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.FundFlow, error) { return a.FundFlowByDate(ctx, date) })
}

func (r *Router) DailyBasicByDate(ctx context.Context, preferred, date string) ([]domain.DailyBasic, error) {
	return call(ctx, r, sources.CapDailyBasicByDate, preferred, []any{date},
		func(v []domain.DailyBasic) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.DailyBasic, error) { return a.DailyBasicByDate(ctx, date) })
}

func (r *Router) MarketMoneyFlow(ctx context.Context, preferred, date string) (domain.MarketMoneyFlow, error) {
	return call(ctx, r, sources.CapMarketMoneyFlow, preferred, []any{date},
		func(v domain.MarketMoneyFlow) bool { return v.Date == "" },
		func(ctx context.Context, a sources.Adapter) (domain.MarketMoneyFlow, error) { return a.MarketMoneyFlow(ctx, date) })
}

func (r *Router) SectorMoneyFlow(ctx context.Context, preferred, date string) ([]domain.SectorMoneyFlow, error) {
	return call(ctx, r, sources.CapSectorMoneyFlow, preferred, []any{date},
		func(v []domain.SectorMoneyFlow) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.SectorMoneyFlow, error) { return a.SectorMoneyFlow(ctx, date) })
}

func (r *Router) TradeCalendar(ctx context.Context, preferred, start, end string) ([]string, error) {
	return call(ctx, r, sources.CapTradeCalendar, preferred, []any{start, end},
		func(v []string) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]string, error) { return a.TradeCalendar(ctx, start, end) })
}

func (r *Router) AuctionByDate(ctx context.Context, preferred, date string, codes []string) ([]domain.AuctionSnapshot, error) {
	return call(ctx, r, sources.CapAuctionByDate, preferred, []any{date, codes},
		func(v []domain.AuctionSnapshot) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.AuctionSnapshot, error) { return a.AuctionByDate(ctx, date, codes) })
}

func (r *Router) RealtimeQuotes(ctx context.Context, preferred string, codes []string) ([]domain.Candle, error) {
	return call(ctx, r, sources.CapRealtimeQuotes, preferred, []any{codes},
		func(v []domain.Candle) bool { return len(v) == 0 },
		func(ctx context.Context, a sources.Adapter) ([]domain.Candle, error) { return a.RealtimeQuotes(ctx, codes) })
}
