package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

// RefreshAuction fetches 09:26 call-auction snapshots for date (optionally
// narrowed to codes) and partially upserts the corresponding DailyBasic
// rows: only turnover_rate, volume_ratio, and float_share are filled, and
// only where the existing row has them null — a DailyBasicByDate pull's
// valuation fields (pe, pb, market cap...) must never be clobbered by an
// auction-derived row.
func (e *Engine) RefreshAuction(ctx context.Context, date string, codes []string, force bool) error {
	if force {
		if err := e.deletePriorAuctionWindow(date); err != nil {
			return fmt.Errorf("clear prior auction window: %w", err)
		}
	}

	snapshots, err := withRetryGeneric(ctx, e, func(ctx context.Context) ([]domain.AuctionSnapshot, error) {
		return e.router.AuctionByDate(ctx, "", date, codes)
	})
	if err != nil {
		return fmt.Errorf("fetch auction snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return nil
	}
	if err := e.store.UpsertAuctionSnapshots(snapshots); err != nil {
		return fmt.Errorf("write auction snapshots: %w", err)
	}

	for _, snap := range snapshots {
		if err := e.partialBasicUpsert(snap); err != nil {
			e.log.Warn().Err(err).Str("code", snap.Code).Msg("partial daily_basic merge from auction failed")
		}
	}
	return nil
}

// deletePriorAuctionWindow removes rows within [date 09:20, date 09:30) CST
// so a forced re-fetch doesn't leave stale ticks from an earlier snapshot
// alongside the new one.
func (e *Engine) deletePriorAuctionWindow(date string) error {
	cst := time.FixedZone("CST", 8*3600)
	start, err := time.ParseInLocation("2006-01-02 15:04:05", date+" 09:20:00", cst)
	if err != nil {
		return err
	}
	end, err := time.ParseInLocation("2006-01-02 15:04:05", date+" 09:30:00", cst)
	if err != nil {
		return err
	}
	return e.store.DeleteAuctionWindow(start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// partialBasicUpsert fills only the auction-observable fields on the
// existing DailyBasic row for snap's date, leaving every valuation field
// (pe, pb, market cap, ...) exactly as the last DailyBasicByDate pull left
// it.
func (e *Engine) partialBasicUpsert(snap domain.AuctionSnapshot) error {
	date := snap.SnapshotTS.Format("2006-01-02")
	existing, ok, err := e.store.LatestDailyBasic(snap.Code)
	if err != nil {
		return err
	}

	merged := domain.DailyBasic{Code: snap.Code, Date: date, Close: snap.Price}
	if ok && existing.Date == date {
		merged = existing
	}
	if merged.TurnoverRate == nil {
		tr := snap.TurnoverRate
		merged.TurnoverRate = &tr
	}
	if merged.VolumeRatio == nil {
		vr := snap.VolumeRatio
		merged.VolumeRatio = &vr
	}
	if merged.FloatShare == nil {
		fs := snap.FloatShare
		merged.FloatShare = &fs
	}
	return e.store.UpsertDailyBasics([]domain.DailyBasic{merged})
}
