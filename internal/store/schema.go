package store

// schemaStatements holds the screening engine's table + index DDL, embedded as
// Go source rather than external .sql files so the binary stays
// self-contained (teacher pattern: internal/database/db.go resolves schemas
// relative to the source tree; here we skip the filesystem lookup entirely
// since the schema never needs to be hand-edited after a build).
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stocks (
		code TEXT PRIMARY KEY,
		raw_code TEXT NOT NULL,
		name TEXT NOT NULL,
		exchange TEXT NOT NULL,
		industry TEXT
	)`,

	`CREATE TABLE IF NOT EXISTS klines (
		code TEXT NOT NULL,
		date TEXT NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		amount REAL NOT NULL,
		PRIMARY KEY (code, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_klines_code_date ON klines(code, date)`,

	`CREATE TABLE IF NOT EXISTS daily_basic (
		code TEXT NOT NULL,
		date TEXT NOT NULL,
		close REAL NOT NULL,
		turnover_rate REAL,
		volume_ratio REAL,
		pe REAL,
		pe_ttm REAL,
		pb REAL,
		ps REAL,
		ps_ttm REAL,
		dv_ratio REAL,
		dv_ttm REAL,
		total_share REAL,
		float_share REAL,
		free_share REAL,
		total_mv REAL,
		circ_mv REAL,
		PRIMARY KEY (code, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_basic_code_date ON daily_basic(code, date)`,

	`CREATE TABLE IF NOT EXISTS fund_flow (
		code TEXT NOT NULL,
		date TEXT NOT NULL,
		main_fund_flow REAL NOT NULL,
		retail_fund_flow REAL NOT NULL,
		institutional_flow REAL NOT NULL,
		large_order_ratio REAL NOT NULL,
		PRIMARY KEY (code, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fund_flow_code_date ON fund_flow(code, date)`,

	`CREATE TABLE IF NOT EXISTS market_moneyflow (
		date TEXT PRIMARY KEY,
		index_level1 REAL, index_pct_change1 REAL,
		index_level2 REAL, index_pct_change2 REAL,
		xl_amount REAL, xl_rate REAL,
		l_amount REAL, l_rate REAL,
		m_amount REAL, m_rate REAL,
		s_amount REAL, s_rate REAL,
		net_amount REAL, net_rate REAL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_market_moneyflow_date ON market_moneyflow(date)`,

	`CREATE TABLE IF NOT EXISTS sector_moneyflow (
		date TEXT NOT NULL,
		sector_code TEXT NOT NULL,
		sector_name TEXT NOT NULL,
		pct_change REAL,
		close REAL,
		rank INTEGER,
		xl_amount REAL, xl_rate REAL,
		l_amount REAL, l_rate REAL,
		m_amount REAL, m_rate REAL,
		s_amount REAL, s_rate REAL,
		net_amount REAL, net_rate REAL,
		PRIMARY KEY (date, sector_code)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sector_moneyflow_date ON sector_moneyflow(date)`,

	`CREATE TABLE IF NOT EXISTS auction_snapshots (
		code TEXT NOT NULL,
		snapshot_ts TEXT NOT NULL,
		pre_close REAL NOT NULL,
		price REAL NOT NULL,
		vol REAL NOT NULL,
		amount REAL NOT NULL,
		turnover_rate REAL,
		volume_ratio REAL,
		float_share REAL,
		PRIMARY KEY (code, snapshot_ts)
	)`,

	`CREATE TABLE IF NOT EXISTS kpl_concepts (
		date TEXT NOT NULL,
		concept_code TEXT NOT NULL,
		concept_name TEXT NOT NULL,
		zt_num INTEGER NOT NULL DEFAULT 0,
		up_num INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, concept_code)
	)`,

	`CREATE TABLE IF NOT EXISTS kpl_concept_cons (
		date TEXT NOT NULL,
		concept_code TEXT NOT NULL,
		stock_code TEXT NOT NULL,
		hot_num INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, concept_code, stock_code)
	)`,

	`CREATE TABLE IF NOT EXISTS collection_history (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		stock_count INTEGER NOT NULL DEFAULT 0,
		kline_count INTEGER NOT NULL DEFAULT 0,
		flow_count INTEGER NOT NULL DEFAULT 0,
		indicator_count INTEGER NOT NULL DEFAULT 0,
		elapsed_sec REAL NOT NULL DEFAULT 0,
		error TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS advanced_selection_history (
		run_id TEXT NOT NULL,
		code TEXT NOT NULL,
		date TEXT NOT NULL,
		strategy_id INTEGER NOT NULL,
		name TEXT,
		industry TEXT,
		composite_score REAL NOT NULL,
		momentum_score REAL, trend_score REAL, sector_score REAL,
		fundamental_score REAL, valuation_score REAL, quality_score REAL,
		growth_score REAL, volume_score REAL, sentiment_score REAL, risk_score REAL,
		selection_reason TEXT,
		risk_level TEXT,
		holding_period TEXT,
		current_price REAL, target_price REAL, stop_loss_price REAL,
		buy_point REAL, sell_point REAL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, code, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_selection_strategy_created ON advanced_selection_history(strategy_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS data_quality_monitor (
		id TEXT PRIMARY KEY,
		metric TEXT NOT NULL,
		value REAL NOT NULL,
		threshold REAL NOT NULL,
		is_healthy INTEGER NOT NULL,
		alert_level TEXT,
		created_at TEXT NOT NULL
	)`,
}
