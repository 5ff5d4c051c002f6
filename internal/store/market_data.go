package store

import (
	"fmt"

	"github.com/aristath/ashare-screener/internal/domain"
)

// UpsertCandles writes daily bars (any mix of stocks and dates) in one transaction.
func (s *Store) UpsertCandles(candles []domain.Candle) error {
	rows := make([]Row, len(candles))
	for i, c := range candles {
		rows[i] = Row{
			"code": c.Code, "date": c.Date,
			"open": c.Open, "high": c.High, "low": c.Low, "close": c.Close,
			"volume": c.Volume, "amount": c.Amount,
		}
	}
	return s.UpsertBatch("klines", rows)
}

// QueryCandles returns up to limit most-recent candles for code, ascending
// by date (so callers can feed them straight to FactorEngine without an
// extra reverse).
func (s *Store) QueryCandles(code string, limit int) ([]domain.Candle, error) {
	rows, err := s.Query("klines", Filter{"code": code}, "-date", limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Candle, len(rows))
	for i, j := len(rows)-1, 0; i >= 0; i, j = i-1, j+1 {
		r := rows[i]
		out[j] = domain.Candle{
			Code: asString(r["code"]), Date: asString(r["date"]),
			Open: asFloat(r["open"]), High: asFloat(r["high"]), Low: asFloat(r["low"]), Close: asFloat(r["close"]),
			Volume: asFloat(r["volume"]), Amount: asFloat(r["amount"]),
		}
	}
	return out, nil
}

// MaxCandleDate returns the latest date with a kline row for code (empty
// string if none), or across the whole table if code is "".
func (s *Store) MaxCandleDate(code string) (string, error) {
	if code == "" {
		return s.MaxDate("klines", nil)
	}
	return s.MaxDate("klines", Filter{"code": code})
}

// DistinctTradingDaysSince counts the distinct kline dates on or after since
// across the whole universe — used by SelectionRunner to scale its
// required-history threshold down when the tracked market is young.
func (s *Store) DistinctTradingDaysSince(since string) (int, error) {
	var n int
	err := s.conn.QueryRow("SELECT COUNT(DISTINCT date) FROM klines WHERE date >= ?", since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: distinct trading days: %w", err)
	}
	return n, nil
}

// CandleCountSince counts code's kline rows on or after since — used by
// SelectionRunner's per-stock eligibility check.
func (s *Store) CandleCountSince(code, since string) (int, error) {
	var n int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM klines WHERE code = ? AND date >= ?", code, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: candle count since: %w", err)
	}
	return n, nil
}

// UpsertDailyBasics writes one trade-day's valuation/liquidity snapshots.
func (s *Store) UpsertDailyBasics(rows []domain.DailyBasic) error {
	out := make([]Row, len(rows))
	for i, d := range rows {
		out[i] = Row{
			"code": d.Code, "date": d.Date, "close": d.Close,
			"turnover_rate": d.TurnoverRate, "volume_ratio": d.VolumeRatio,
			"pe": d.PE, "pe_ttm": d.PETTM, "pb": d.PB, "ps": d.PS, "ps_ttm": d.PSTTM,
			"dv_ratio": d.DVRatio, "dv_ttm": d.DVTTM,
			"total_share": d.TotalShare, "float_share": d.FloatShare, "free_share": d.FreeShare,
			"total_mv": d.TotalMV, "circ_mv": d.CircMV,
		}
	}
	return s.UpsertBatch("daily_basic", out)
}

// LatestDailyBasic returns the most recent daily_basic row for code, if any.
func (s *Store) LatestDailyBasic(code string) (domain.DailyBasic, bool, error) {
	rows, err := s.Query("daily_basic", Filter{"code": code}, "-date", 1)
	if err != nil || len(rows) == 0 {
		return domain.DailyBasic{}, false, err
	}
	r := rows[0]
	return domain.DailyBasic{
		Code: asString(r["code"]), Date: asString(r["date"]), Close: asFloat(r["close"]),
		TurnoverRate: asFloatPtr(r["turnover_rate"]), VolumeRatio: asFloatPtr(r["volume_ratio"]),
		PE: asFloatPtr(r["pe"]), PETTM: asFloatPtr(r["pe_ttm"]), PB: asFloatPtr(r["pb"]),
		PS: asFloatPtr(r["ps"]), PSTTM: asFloatPtr(r["ps_ttm"]),
		DVRatio: asFloatPtr(r["dv_ratio"]), DVTTM: asFloatPtr(r["dv_ttm"]),
		TotalShare: asFloatPtr(r["total_share"]), FloatShare: asFloatPtr(r["float_share"]),
		FreeShare: asFloatPtr(r["free_share"]), TotalMV: asFloatPtr(r["total_mv"]), CircMV: asFloatPtr(r["circ_mv"]),
	}, true, nil
}

// UpsertFundFlows writes one trade-day's per-stock money-flow breakdown.
func (s *Store) UpsertFundFlows(rows []domain.FundFlow) error {
	out := make([]Row, len(rows))
	for i, f := range rows {
		out[i] = Row{
			"code": f.Code, "date": f.Date,
			"main_fund_flow": f.MainFundFlow, "retail_fund_flow": f.RetailFundFlow,
			"institutional_flow": f.InstitutionalFlow, "large_order_ratio": f.LargeOrderRatio,
		}
	}
	return s.UpsertBatch("fund_flow", out)
}

// LatestFundFlow returns the most recent fund_flow row for code, if any.
func (s *Store) LatestFundFlow(code string) (domain.FundFlow, bool, error) {
	rows, err := s.Query("fund_flow", Filter{"code": code}, "-date", 1)
	if err != nil || len(rows) == 0 {
		return domain.FundFlow{}, false, err
	}
	r := rows[0]
	return domain.FundFlow{
		Code: asString(r["code"]), Date: asString(r["date"]),
		MainFundFlow: asFloat(r["main_fund_flow"]), RetailFundFlow: asFloat(r["retail_fund_flow"]),
		InstitutionalFlow: asFloat(r["institutional_flow"]), LargeOrderRatio: asFloat(r["large_order_ratio"]),
	}, true, nil
}
