package store

import (
	"database/sql"
	"fmt"
	"time"
)

// The queries below back internal/quality's coverage/completeness/
// consistency/timeliness/accuracy rubric. They fall outside the generic
// Upsert/Query/MaxDate/Exists surface (aggregates and joins), so they're
// raw SQL against the fixed schema, same as DeleteAuctionWindow.

// CountStocks returns the total tracked universe size.
func (s *Store) CountStocks() (int, error) {
	var n int
	err := s.conn.QueryRow("SELECT COUNT(*) FROM stocks").Scan(&n)
	return n, err
}

// KlineStats returns (distinct stock count, total row count) for klines on
// or after since.
func (s *Store) KlineStats(since string) (stocks, records int, err error) {
	err = s.conn.QueryRow(
		"SELECT COUNT(DISTINCT code), COUNT(*) FROM klines WHERE date >= ?", since,
	).Scan(&stocks, &records)
	return stocks, records, err
}

// FlowStats returns (distinct stock count, total row count) for fund_flow on
// or after since.
func (s *Store) FlowStats(since string) (stocks, records int, err error) {
	err = s.conn.QueryRow(
		"SELECT COUNT(DISTINCT code), COUNT(*) FROM fund_flow WHERE date >= ?", since,
	).Scan(&stocks, &records)
	return stocks, records, err
}

// HotStockKlineFlowCounts returns (kline row count, fund_flow row count) for
// one code on or after since — used for the curated hot-stock coverage
// metric.
func (s *Store) HotStockKlineFlowCounts(code, since string) (klineCount, flowCount int, err error) {
	if err = s.conn.QueryRow(
		"SELECT COUNT(*) FROM klines WHERE code = ? AND date >= ?", code, since,
	).Scan(&klineCount); err != nil {
		return 0, 0, err
	}
	err = s.conn.QueryRow(
		"SELECT COUNT(*) FROM fund_flow WHERE code = ? AND date >= ?", code, since,
	).Scan(&flowCount)
	return klineCount, flowCount, err
}

// MissingCounts returns, for the tracked universe, how many stocks are
// missing a kline/fund_flow row on or after since.
func (s *Store) MissingCounts(since string) (totalStocks, missingKline, missingFlow int, err error) {
	row := s.conn.QueryRow(`
		SELECT
			COUNT(DISTINCT st.code),
			SUM(CASE WHEN k.code IS NULL THEN 1 ELSE 0 END),
			SUM(CASE WHEN f.code IS NULL THEN 1 ELSE 0 END)
		FROM stocks st
		LEFT JOIN (SELECT DISTINCT code FROM klines WHERE date >= ?) k ON st.code = k.code
		LEFT JOIN (SELECT DISTINCT code FROM fund_flow WHERE date >= ?) f ON st.code = f.code
	`, since, since)
	err = row.Scan(&totalStocks, &missingKline, &missingFlow)
	return totalStocks, missingKline, missingFlow, err
}

// ErrorCounts returns (kline total, kline invalid, flow total, flow
// all-zero) on or after since — an invalid kline has any of
// {open,high,low,close,volume} <= 0; an all-zero flow row has every flow
// field equal to zero.
func (s *Store) ErrorCounts(since string) (klineTotal, klineErrors, flowTotal, flowErrors int, err error) {
	err = s.conn.QueryRow(`
		SELECT COUNT(*), SUM(CASE WHEN open <= 0 OR high <= 0 OR low <= 0 OR close <= 0 OR volume <= 0 THEN 1 ELSE 0 END)
		FROM klines WHERE date >= ?
	`, since).Scan(&klineTotal, &klineErrors)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	err = s.conn.QueryRow(`
		SELECT COUNT(*), SUM(CASE WHEN main_fund_flow = 0 AND retail_fund_flow = 0 AND institutional_flow = 0 THEN 1 ELSE 0 END)
		FROM fund_flow WHERE date >= ?
	`, since).Scan(&flowTotal, &flowErrors)
	return klineTotal, klineErrors, flowTotal, flowErrors, err
}

// ConsistencyCounts returns (total stocks, stocks with both a kline and a
// fund_flow row) on or after since.
func (s *Store) ConsistencyCounts(since string) (totalStocks, matchedStocks int, err error) {
	err = s.conn.QueryRow(`
		SELECT
			COUNT(DISTINCT st.code),
			COUNT(DISTINCT CASE WHEN k.code IS NOT NULL AND f.code IS NOT NULL THEN st.code END)
		FROM stocks st
		LEFT JOIN (SELECT DISTINCT code FROM klines WHERE date >= ?) k ON st.code = k.code
		LEFT JOIN (SELECT DISTINCT code FROM fund_flow WHERE date >= ?) f ON st.code = f.code
	`, since, since).Scan(&totalStocks, &matchedStocks)
	return totalStocks, matchedStocks, err
}

// DateRange returns (min, max, distinct day count) for table's date column
// on or after since; table must be "klines" or "fund_flow".
func (s *Store) DateRange(table, since string) (minDate, maxDate string, distinctDays int, err error) {
	if table != "klines" && table != "fund_flow" {
		return "", "", 0, fmt.Errorf("store: date range unsupported for table %q", table)
	}
	var minD, maxD sql.NullString
	err = s.conn.QueryRow(
		fmt.Sprintf("SELECT MIN(date), MAX(date), COUNT(DISTINCT date) FROM %s WHERE date >= ?", table), since,
	).Scan(&minD, &maxD, &distinctDays)
	return minD.String, maxD.String, distinctDays, err
}

// LastCollectionTime returns the most recent completed collection run's
// created_at, if any.
func (s *Store) LastCollectionTime() (time.Time, bool, error) {
	var raw sql.NullString
	err := s.conn.QueryRow(
		"SELECT MAX(created_at) FROM collection_history WHERE status = 'completed'",
	).Scan(&raw)
	if err != nil || !raw.Valid {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, raw.String)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

// WeeklyCollectionCount returns how many collection runs completed in the
// last 7 days.
func (s *Store) WeeklyCollectionCount() (int, error) {
	since := time.Now().AddDate(0, 0, -7).UTC().Format(time.RFC3339)
	var n int
	err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM collection_history WHERE status = 'completed' AND created_at >= ?", since,
	).Scan(&n)
	return n, err
}

// AccuracyCounts returns (kline total, kline valid, flow-vs-kline total,
// flow-vs-kline valid) on or after since. A kline row is valid when its
// OHLC/volume/amount relationships hold; a fund_flow row is valid when its
// aggregated magnitude sits within [0.2x, 2x] of the same-day kline amount.
func (s *Store) AccuracyCounts(since string) (klineTotal, klineValid, flowTotal, flowValid int, err error) {
	err = s.conn.QueryRow(`
		SELECT COUNT(*), SUM(
			CASE WHEN open > 0 AND close > 0 AND low > 0 AND high >= low AND high >= open AND high >= close
			      AND volume >= 0 AND amount >= 0
			     THEN 1 ELSE 0 END
		)
		FROM klines WHERE date >= ?
	`, since).Scan(&klineTotal, &klineValid)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	err = s.conn.QueryRow(`
		SELECT COUNT(*), SUM(
			CASE WHEN k.amount > 0
			      AND (ABS(f.main_fund_flow) + ABS(f.retail_fund_flow) + ABS(f.institutional_flow)) BETWEEN k.amount * 0.2 AND k.amount * 2.0
			     THEN 1 ELSE 0 END
		)
		FROM fund_flow f JOIN klines k ON f.code = k.code AND f.date = k.date
		WHERE f.date >= ?
	`, since).Scan(&flowTotal, &flowValid)
	return klineTotal, klineValid, flowTotal, flowValid, err
}
