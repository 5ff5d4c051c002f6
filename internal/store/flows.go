package store

import "github.com/aristath/ashare-screener/internal/domain"

func bucketRow(prefix string, b domain.FlowBucket) Row {
	return Row{prefix + "_amount": b.Amount, prefix + "_rate": b.Rate}
}

func mergeRows(rows ...Row) Row {
	out := Row{}
	for _, r := range rows {
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

func readBucket(r Row, prefix string) domain.FlowBucket {
	return domain.FlowBucket{Amount: asFloat(r[prefix+"_amount"]), Rate: asFloat(r[prefix+"_rate"])}
}

// UpsertMarketMoneyFlow writes one trade-day's market-wide index + bucketed flow.
func (s *Store) UpsertMarketMoneyFlow(m domain.MarketMoneyFlow) error {
	row := mergeRows(
		Row{
			"date": m.Date,
			"index_level1": m.IndexLevel1, "index_pct_change1": m.IndexPctChange1,
			"index_level2": m.IndexLevel2, "index_pct_change2": m.IndexPctChange2,
		},
		bucketRow("xl", m.ExtraLarge), bucketRow("l", m.Large), bucketRow("m", m.Mid),
		bucketRow("s", m.Small), bucketRow("net", m.Net),
	)
	return s.Upsert("market_moneyflow", row)
}

// LatestMarketMoneyFlow returns the most recent market_moneyflow row.
func (s *Store) LatestMarketMoneyFlow() (domain.MarketMoneyFlow, bool, error) {
	rows, err := s.Query("market_moneyflow", nil, "-date", 1)
	if err != nil || len(rows) == 0 {
		return domain.MarketMoneyFlow{}, false, err
	}
	r := rows[0]
	return domain.MarketMoneyFlow{
		Date: asString(r["date"]),
		IndexLevel1: asFloat(r["index_level1"]), IndexPctChange1: asFloat(r["index_pct_change1"]),
		IndexLevel2: asFloat(r["index_level2"]), IndexPctChange2: asFloat(r["index_pct_change2"]),
		ExtraLarge: readBucket(r, "xl"), Large: readBucket(r, "l"), Mid: readBucket(r, "m"),
		Small: readBucket(r, "s"), Net: readBucket(r, "net"),
	}, true, nil
}

// UpsertSectorMoneyFlows writes one trade-day's per-sector flow + rank rows.
func (s *Store) UpsertSectorMoneyFlows(flows []domain.SectorMoneyFlow) error {
	rows := make([]Row, len(flows))
	for i, m := range flows {
		rows[i] = mergeRows(
			Row{
				"date": m.Date, "sector_code": m.SectorCode, "sector_name": m.SectorName,
				"pct_change": m.PctChange, "close": m.Close, "rank": m.Rank,
			},
			bucketRow("xl", m.ExtraLarge), bucketRow("l", m.Large), bucketRow("m", m.Mid),
			bucketRow("s", m.Small), bucketRow("net", m.Net),
		)
	}
	return s.UpsertBatch("sector_moneyflow", rows)
}

// LatestSectorMoneyFlow returns the most recent sector_moneyflow row for a
// sector code, if any.
func (s *Store) LatestSectorMoneyFlow(sectorCode string) (domain.SectorMoneyFlow, bool, error) {
	rows, err := s.Query("sector_moneyflow", Filter{"sector_code": sectorCode}, "-date", 1)
	if err != nil || len(rows) == 0 {
		return domain.SectorMoneyFlow{}, false, err
	}
	r := rows[0]
	return domain.SectorMoneyFlow{
		Date: asString(r["date"]), SectorCode: asString(r["sector_code"]), SectorName: asString(r["sector_name"]),
		PctChange: asFloat(r["pct_change"]), Close: asFloat(r["close"]), Rank: asInt(r["rank"]),
		ExtraLarge: readBucket(r, "xl"), Large: readBucket(r, "l"), Mid: readBucket(r, "m"),
		Small: readBucket(r, "s"), Net: readBucket(r, "net"),
	}, true, nil
}

// SectorMoneyFlowHistory returns up to limit most-recent rows for a sector,
// ascending by date — used to derive a 5-day sector change window.
func (s *Store) SectorMoneyFlowHistory(sectorCode string, limit int) ([]domain.SectorMoneyFlow, error) {
	rows, err := s.Query("sector_moneyflow", Filter{"sector_code": sectorCode}, "-date", limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SectorMoneyFlow, len(rows))
	for i, j := len(rows)-1, 0; i >= 0; i, j = i-1, j+1 {
		r := rows[i]
		out[j] = domain.SectorMoneyFlow{
			Date: asString(r["date"]), SectorCode: asString(r["sector_code"]), SectorName: asString(r["sector_name"]),
			PctChange: asFloat(r["pct_change"]), Close: asFloat(r["close"]), Rank: asInt(r["rank"]),
			ExtraLarge: readBucket(r, "xl"), Large: readBucket(r, "l"), Mid: readBucket(r, "m"),
			Small: readBucket(r, "s"), Net: readBucket(r, "net"),
		}
	}
	return out, nil
}
