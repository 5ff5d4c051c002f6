package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// tableSpec describes enough of a table's shape to build parameterized
// upsert/query statements without per-table boilerplate: its primary-key
// columns (used both for the UPSERT conflict target and for Exists) and the
// full ordered column list.
type tableSpec struct {
	columns []string
	pk      []string
}

// tableRegistry mirrors schemaStatements; it must stay in sync with it by
// hand since sqlite has no convenient introspection the caller would want to
// pay the round trip for on every call.
var tableRegistry = map[string]tableSpec{
	"stocks": {
		columns: []string{"code", "raw_code", "name", "exchange", "industry"},
		pk:      []string{"code"},
	},
	"klines": {
		columns: []string{"code", "date", "open", "high", "low", "close", "volume", "amount"},
		pk:      []string{"code", "date"},
	},
	"daily_basic": {
		columns: []string{"code", "date", "close", "turnover_rate", "volume_ratio", "pe", "pe_ttm",
			"pb", "ps", "ps_ttm", "dv_ratio", "dv_ttm", "total_share", "float_share", "free_share",
			"total_mv", "circ_mv"},
		pk: []string{"code", "date"},
	},
	"fund_flow": {
		columns: []string{"code", "date", "main_fund_flow", "retail_fund_flow", "institutional_flow", "large_order_ratio"},
		pk:      []string{"code", "date"},
	},
	"market_moneyflow": {
		columns: []string{"date", "index_level1", "index_pct_change1", "index_level2", "index_pct_change2",
			"xl_amount", "xl_rate", "l_amount", "l_rate", "m_amount", "m_rate", "s_amount", "s_rate",
			"net_amount", "net_rate"},
		pk: []string{"date"},
	},
	"sector_moneyflow": {
		columns: []string{"date", "sector_code", "sector_name", "pct_change", "close", "rank",
			"xl_amount", "xl_rate", "l_amount", "l_rate", "m_amount", "m_rate", "s_amount", "s_rate",
			"net_amount", "net_rate"},
		pk: []string{"date", "sector_code"},
	},
	"auction_snapshots": {
		columns: []string{"code", "snapshot_ts", "pre_close", "price", "vol", "amount", "turnover_rate",
			"volume_ratio", "float_share"},
		pk: []string{"code", "snapshot_ts"},
	},
	"kpl_concepts": {
		columns: []string{"date", "concept_code", "concept_name", "zt_num", "up_num"},
		pk:      []string{"date", "concept_code"},
	},
	"kpl_concept_cons": {
		columns: []string{"date", "concept_code", "stock_code", "hot_num"},
		pk:      []string{"date", "concept_code", "stock_code"},
	},
	"collection_history": {
		columns: []string{"id", "type", "start_date", "end_date", "status", "stock_count", "kline_count",
			"flow_count", "indicator_count", "elapsed_sec", "error", "created_at", "updated_at"},
		pk: []string{"id"},
	},
	"advanced_selection_history": {
		columns: []string{"run_id", "code", "date", "strategy_id", "name", "industry", "composite_score",
			"momentum_score", "trend_score", "sector_score", "fundamental_score", "valuation_score",
			"quality_score", "growth_score", "volume_score", "sentiment_score", "risk_score",
			"selection_reason", "risk_level", "holding_period", "current_price", "target_price",
			"stop_loss_price", "buy_point", "sell_point", "created_at"},
		pk: []string{"run_id", "code", "date"},
	},
	"data_quality_monitor": {
		columns: []string{"id", "metric", "value", "threshold", "is_healthy", "alert_level", "created_at"},
		pk:      []string{"id"},
	},
}

// Row is a single generic write/read record keyed by column name, per
// spec.md's literal Upsert/Query operations.
type Row map[string]any

// Filter is an equality filter for Query; AND-combined across keys.
type Filter map[string]any

func spec(table string) (tableSpec, error) {
	ts, ok := tableRegistry[table]
	if !ok {
		return tableSpec{}, fmt.Errorf("store: unknown table %q", table)
	}
	return ts, nil
}

// Upsert inserts row, or replaces it in place on a primary-key conflict.
func (s *Store) Upsert(table string, row Row) error {
	return s.UpsertBatch(table, []Row{row})
}

// UpsertBatch performs all rows in one transaction so a partial failure
// never leaves a half-applied day on disk (the idempotent-ingestion
// invariant downstream callers depend on).
func (s *Store) UpsertBatch(table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	ts, err := spec(table)
	if err != nil {
		return err
	}

	stmt := buildUpsertSQL(table, ts)

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin upsert batch on %s: %w", table, err)
	}
	defer tx.Rollback()

	prepared, err := tx.Prepare(stmt)
	if err != nil {
		return fmt.Errorf("store: prepare upsert on %s: %w", table, err)
	}
	defer prepared.Close()

	for _, row := range rows {
		args := make([]any, len(ts.columns))
		for i, col := range ts.columns {
			args[i] = row[col]
		}
		if _, err := prepared.Exec(args...); err != nil {
			return fmt.Errorf("store: upsert row into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func buildUpsertSQL(table string, ts tableSpec) string {
	placeholders := make([]string, len(ts.columns))
	for i := range ts.columns {
		placeholders[i] = "?"
	}

	pkSet := make(map[string]bool, len(ts.pk))
	for _, k := range ts.pk {
		pkSet[k] = true
	}
	var updates []string
	for _, col := range ts.columns {
		if pkSet[col] {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	sqlStr := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(ts.columns, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(ts.pk, ", "),
		strings.Join(updates, ", "),
	)
	if len(updates) == 0 {
		// Pure-key table (none here today, but keep Upsert total): fall back
		// to DO NOTHING so re-ingesting an unchanged key is still a no-op.
		sqlStr = fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
			table, strings.Join(ts.columns, ", "), strings.Join(placeholders, ", "), strings.Join(ts.pk, ", "),
		)
	}
	return sqlStr
}

// Query returns rows matching filter (AND-combined equality), ordered by
// orderBy ascending (prefix with "-" for descending), capped at limit (0 =
// unlimited).
func (s *Store) Query(table string, filter Filter, orderBy string, limit int) ([]Row, error) {
	ts, err := spec(table)
	if err != nil {
		return nil, err
	}

	var where []string
	var args []any
	// Deterministic clause order regardless of map iteration.
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, fmt.Sprintf("%s = ?", k))
		args = append(args, filter[k])
	}

	queryStr := fmt.Sprintf("SELECT %s FROM %s", strings.Join(ts.columns, ", "), table)
	if len(where) > 0 {
		queryStr += " WHERE " + strings.Join(where, " AND ")
	}
	if orderBy != "" {
		col, dir := orderBy, "ASC"
		if strings.HasPrefix(orderBy, "-") {
			col, dir = orderBy[1:], "DESC"
		}
		queryStr += fmt.Sprintf(" ORDER BY %s %s", col, dir)
	}
	if limit > 0 {
		queryStr += fmt.Sprintf(" LIMIT %d", limit)
	}

	rowsSQL, err := s.conn.Query(queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", table, err)
	}
	defer rowsSQL.Close()

	return scanRows(rowsSQL, ts.columns)
}

func scanRows(rowsSQL *sql.Rows, columns []string) ([]Row, error) {
	var out []Row
	for rowsSQL.Next() {
		vals := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rowsSQL.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rowsSQL.Err()
}

// MaxDate returns the maximum "date" column value for table, optionally
// narrowed by filter, or "" if the table (post-filter) is empty.
// MaxCandleDate wraps it for klines.
func (s *Store) MaxDate(table string, filter Filter) (string, error) {
	if _, err := spec(table); err != nil {
		return "", err
	}

	var where []string
	var args []any
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		where = append(where, fmt.Sprintf("%s = ?", k))
		args = append(args, filter[k])
	}

	queryStr := fmt.Sprintf("SELECT MAX(date) FROM %s", table)
	if len(where) > 0 {
		queryStr += " WHERE " + strings.Join(where, " AND ")
	}

	var maxDate sql.NullString
	if err := s.conn.QueryRow(queryStr, args...).Scan(&maxDate); err != nil {
		return "", fmt.Errorf("store: max date on %s: %w", table, err)
	}
	if !maxDate.Valid {
		return "", nil
	}
	return maxDate.String, nil
}

// Exists reports whether a row with the given primary-key values (keyed by
// column name) is present.
func (s *Store) Exists(table string, key Row) (bool, error) {
	ts, err := spec(table)
	if err != nil {
		return false, err
	}

	var where []string
	var args []any
	for _, col := range ts.pk {
		where = append(where, fmt.Sprintf("%s = ?", col))
		args = append(args, key[col])
	}

	queryStr := fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1", table, strings.Join(where, " AND "))
	var one int
	err = s.conn.QueryRow(queryStr, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: exists on %s: %w", table, err)
	}
	return true, nil
}
