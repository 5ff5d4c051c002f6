// Package ingestion materializes a requested trading-date range into the
// Store: resolving the calendar, pulling each capability per date through
// the SourceRouter, and recording a CollectionRun audit trail.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/sources/router"
	"github.com/aristath/ashare-screener/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// minCandlesForComplete is the per-date row-count threshold below which a
// trading date is considered not-yet-ingested and is retried even without
// --force.
const minCandlesForComplete = 1000

// Engine runs incremental and auction-refresh ingestion passes.
type Engine struct {
	store  *store.Store
	router *router.Router
	log    zerolog.Logger

	callDelay      time.Duration
	retryCount     int
	retryBaseDelay time.Duration
}

// Config configures an Engine's vendor-quota pacing.
type Config struct {
	CallDelay      time.Duration
	RetryCount     int
	RetryBaseDelay time.Duration
}

// New constructs an Engine.
func New(st *store.Store, r *router.Router, cfg Config, log zerolog.Logger) *Engine {
	if cfg.CallDelay <= 0 {
		cfg.CallDelay = 500 * time.Millisecond
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	return &Engine{
		store: st, router: r, log: log.With().Str("component", "ingestion-engine").Logger(),
		callDelay: cfg.CallDelay, retryCount: cfg.RetryCount, retryBaseDelay: cfg.RetryBaseDelay,
	}
}

// RunIncremental resolves the trading dates in [today-lookbackDays, today],
// skips dates Store already considers complete, and pulls each capability
// for the remaining dates in descending order, newest first.
func (e *Engine) RunIncremental(ctx context.Context, lookbackDays int, includeFundFlow bool, force bool) (domain.CollectionRun, error) {
	now := time.Now()
	run := domain.CollectionRun{
		ID: uuid.NewString(), Type: domain.RunIncremental,
		StartDate: now.AddDate(0, 0, -lookbackDays).Format("2006-01-02"), EndDate: now.Format("2006-01-02"),
		Status: domain.RunPending, CreatedAt: now, UpdatedAt: now,
	}
	run.Advance(domain.RunRunning)
	if err := e.store.SaveCollectionRun(run); err != nil {
		return run, fmt.Errorf("save initial run: %w", err)
	}

	started := time.Now()
	dates, err := e.resolveTradingDates(ctx, run.StartDate, run.EndDate)
	if err != nil {
		run.Error = err.Error()
		run.Advance(domain.RunFailed)
		_ = e.store.SaveCollectionRun(run)
		return run, err
	}

	stocks, err := e.router.ListStocks(ctx, "primary")
	if err != nil {
		run.Error = err.Error()
		run.Advance(domain.RunFailed)
		_ = e.store.SaveCollectionRun(run)
		return run, err
	}
	if err := e.store.UpsertStocks(stocks); err != nil {
		run.Error = err.Error()
		run.Advance(domain.RunFailed)
		_ = e.store.SaveCollectionRun(run)
		return run, err
	}
	run.StockCount = len(stocks)

	for i := len(dates) - 1; i >= 0; i-- {
		date := dates[i]
		if !force {
			existing, err := e.store.Query("klines", store.Filter{"date": date}, "", 1)
			if err == nil && len(existing) > 0 {
				count, _ := e.countCandlesOnDate(date)
				if count >= minCandlesForComplete {
					continue
				}
			}
		}
		e.ingestDate(ctx, date, includeFundFlow, &run)
	}

	run.ElapsedSec = time.Since(started).Seconds()
	run.Advance(domain.RunCompleted)
	if err := e.store.SaveCollectionRun(run); err != nil {
		return run, fmt.Errorf("save final run: %w", err)
	}
	return run, nil
}

func (e *Engine) countCandlesOnDate(date string) (int, error) {
	rows, err := e.store.Query("klines", store.Filter{"date": date}, "", 0)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// resolveTradingDates tries the calendar first; any router failure (not
// just Unavailable — a degraded vendor returning a format error should not
// abort the whole run) falls back to the natural-day range.
func (e *Engine) resolveTradingDates(ctx context.Context, start, end string) ([]string, error) {
	dates, err := e.router.TradeCalendar(ctx, "primary", start, end)
	if err == nil && len(dates) > 0 {
		return dates, nil
	}
	e.log.Warn().Err(err).Msg("trade calendar unavailable, falling back to natural days")
	return naturalDays(start, end), nil
}

func naturalDays(start, end string) []string {
	s, err1 := time.Parse("2006-01-02", start)
	en, err2 := time.Parse("2006-01-02", end)
	if err1 != nil || err2 != nil || en.Before(s) {
		return nil
	}
	var out []string
	for d := s; !d.After(en); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

// ingestDate pulls one trading date's full capability set and writes it;
// failures are recorded but do not abort the remaining dates.
func (e *Engine) ingestDate(ctx context.Context, date string, includeFundFlow bool, run *domain.CollectionRun) {
	log := e.log.With().Str("date", date).Logger()

	candles, err := withRetryGeneric(ctx, e, func(ctx context.Context) ([]domain.Candle, error) {
		return e.router.DailyByDate(ctx, "primary", date)
	})
	if err != nil {
		log.Warn().Err(err).Msg("daily candles unavailable for date")
	} else if len(candles) > 0 {
		if err := e.store.UpsertCandles(candles); err != nil {
			log.Error().Err(err).Msg("write candles failed")
		} else {
			run.KlineCount += len(candles)
		}
	}
	e.pace(ctx)

	basics, err := withRetryGeneric(ctx, e, func(ctx context.Context) ([]domain.DailyBasic, error) {
		return e.router.DailyBasicByDate(ctx, "primary", date)
	})
	if err != nil {
		log.Warn().Err(err).Msg("daily basic unavailable for date")
	} else if len(basics) > 0 {
		if err := e.store.UpsertDailyBasics(basics); err != nil {
			log.Error().Err(err).Msg("write daily basic failed")
		} else {
			run.IndicatorCount += len(basics)
		}
	}
	e.pace(ctx)

	if includeFundFlow {
		flows, err := withRetryGeneric(ctx, e, func(ctx context.Context) ([]domain.FundFlow, error) {
			return e.router.FundFlowByDate(ctx, "primary", date)
		})
		if err != nil {
			log.Warn().Err(err).Msg("fund flow unavailable for date")
		} else if len(flows) > 0 {
			if err := e.store.UpsertFundFlows(flows); err != nil {
				log.Error().Err(err).Msg("write fund flow failed")
			} else {
				run.FlowCount += len(flows)
			}
		}
		e.pace(ctx)
	}

	market, err := withRetryGeneric(ctx, e, func(ctx context.Context) (domain.MarketMoneyFlow, error) {
		return e.router.MarketMoneyFlow(ctx, "primary", date)
	})
	if err != nil {
		log.Warn().Err(err).Msg("market moneyflow unavailable for date")
	} else if market.Date != "" {
		if err := e.store.UpsertMarketMoneyFlow(market); err != nil {
			log.Error().Err(err).Msg("write market moneyflow failed")
		}
	}
	e.pace(ctx)

	sectors, err := withRetryGeneric(ctx, e, func(ctx context.Context) ([]domain.SectorMoneyFlow, error) {
		return e.router.SectorMoneyFlow(ctx, "primary", date)
	})
	if err != nil {
		log.Warn().Err(err).Msg("sector moneyflow unavailable for date")
	} else if len(sectors) > 0 {
		if err := e.store.UpsertSectorMoneyFlows(sectors); err != nil {
			log.Error().Err(err).Msg("write sector moneyflow failed")
		}
	}
}

func (e *Engine) pace(ctx context.Context) {
	select {
	case <-time.After(e.callDelay):
	case <-ctx.Done():
	}
}

// withRetryGeneric retries a router call up to e.retryCount times with exponential
// backoff, but only for RateLimited errors; any other error (or exhaustion)
// is returned immediately so the caller can isolate the per-date failure.
func withRetryGeneric[T any](ctx context.Context, e *Engine, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	delay := e.retryBaseDelay
	var lastErr error
	for attempt := 0; attempt <= e.retryCount; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !domain.IsKind(err, domain.KindRateLimited) {
			return zero, err
		}
		if attempt == e.retryCount {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
		delay *= 2
	}
	return zero, lastErr
}

