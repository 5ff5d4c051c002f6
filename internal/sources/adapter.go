// Package sources defines the uniform vendor contract every data source
// implements, plus the two concrete adapters (a token-gated full-surface
// vendor and a reduced-surface fallback) that feed the router.
package sources

import (
	"context"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

// Adapter is the capability set every vendor source must expose. Adapters
// must not cache: SourceRouter owns the only cache in the pipeline.
type Adapter interface {
	// Name is the adapter's static identity, used as a health-map key.
	Name() string
	// Available reports readiness synchronously (e.g. token present), never
	// performing network I/O.
	Available() bool

	ListStocks(ctx context.Context) ([]domain.Stock, error)
	DailyByDate(ctx context.Context, date string) ([]domain.Candle, error)
	DailyByCode(ctx context.Context, code, start, end string) ([]domain.Candle, error)
	FundFlowByDate(ctx context.Context, date string) ([]domain.FundFlow, error)
	DailyBasicByDate(ctx context.Context, date string) ([]domain.DailyBasic, error)
	MarketMoneyFlow(ctx context.Context, date string) (domain.MarketMoneyFlow, error)
	SectorMoneyFlow(ctx context.Context, date string) ([]domain.SectorMoneyFlow, error)
	TradeCalendar(ctx context.Context, start, end string) ([]string, error)
	AuctionByDate(ctx context.Context, date string, codes []string) ([]domain.AuctionSnapshot, error)
	RealtimeQuotes(ctx context.Context, codes []string) ([]domain.Candle, error)
}

// Capability names the ten Adapter operations, used as the first half of a
// SourceRouter cache key and as the health-sample dimension.
type Capability string

const (
	CapListStocks       Capability = "list_stocks"
	CapDailyByDate       Capability = "daily_by_date"
	CapDailyByCode       Capability = "daily_by_code"
	CapFundFlowByDate    Capability = "fund_flow_by_date"
	CapDailyBasicByDate  Capability = "daily_basic_by_date"
	CapMarketMoneyFlow   Capability = "market_moneyflow"
	CapSectorMoneyFlow   Capability = "sector_moneyflow"
	CapTradeCalendar     Capability = "trade_calendar"
	CapAuctionByDate     Capability = "auction_by_date"
	CapRealtimeQuotes    Capability = "realtime_quotes"
)

// defaultHealthCheckTimeout is an 8-second bound for a health probe. The
// router issues no health probes and does not read this constant; routed
// calls are unbounded unless the caller supplies its own deadline.
const defaultHealthCheckTimeout = 8 * time.Second
