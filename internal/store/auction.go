package store

import (
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

// UpsertAuctionSnapshots writes one 09:26 call-auction tick per stock.
func (s *Store) UpsertAuctionSnapshots(snaps []domain.AuctionSnapshot) error {
	rows := make([]Row, len(snaps))
	for i, a := range snaps {
		rows[i] = Row{
			"code": a.Code, "snapshot_ts": a.SnapshotTS.UTC().Format(time.RFC3339),
			"pre_close": a.PreClose, "price": a.Price, "vol": a.Vol, "amount": a.Amount,
			"turnover_rate": a.TurnoverRate, "volume_ratio": a.VolumeRatio, "float_share": a.FloatShare,
		}
	}
	return s.UpsertBatch("auction_snapshots", rows)
}

// DeleteAuctionWindow removes every auction_snapshots row with snapshot_ts
// in [startTS, endTS) — used by a forced auction refresh to clear the
// refreshed date's 09:20-09:30 window before inserting the new one.
func (s *Store) DeleteAuctionWindow(startTS, endTS string) error {
	_, err := s.conn.Exec("DELETE FROM auction_snapshots WHERE snapshot_ts >= ? AND snapshot_ts < ?", startTS, endTS)
	return err
}

// LatestAuctionSnapshot returns the most recent auction snapshot for code.
func (s *Store) LatestAuctionSnapshot(code string) (domain.AuctionSnapshot, bool, error) {
	rows, err := s.Query("auction_snapshots", Filter{"code": code}, "-snapshot_ts", 1)
	if err != nil || len(rows) == 0 {
		return domain.AuctionSnapshot{}, false, err
	}
	r := rows[0]
	ts, _ := time.Parse(time.RFC3339, asString(r["snapshot_ts"]))
	return domain.AuctionSnapshot{
		Code: asString(r["code"]), SnapshotTS: ts,
		PreClose: asFloat(r["pre_close"]), Price: asFloat(r["price"]), Vol: asFloat(r["vol"]),
		Amount: asFloat(r["amount"]), TurnoverRate: asFloat(r["turnover_rate"]),
		VolumeRatio: asFloat(r["volume_ratio"]), FloatShare: asFloat(r["float_share"]),
	}, true, nil
}
