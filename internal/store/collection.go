package store

import (
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

// SaveCollectionRun upserts the audit row for an ingestion run.
func (s *Store) SaveCollectionRun(r domain.CollectionRun) error {
	return s.Upsert("collection_history", Row{
		"id": r.ID, "type": string(r.Type), "start_date": r.StartDate, "end_date": r.EndDate,
		"status": string(r.Status), "stock_count": r.StockCount, "kline_count": r.KlineCount,
		"flow_count": r.FlowCount, "indicator_count": r.IndicatorCount, "elapsed_sec": r.ElapsedSec,
		"error": r.Error, "created_at": r.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": r.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// LatestCollectionRun returns the most recently created run, if any.
func (s *Store) LatestCollectionRun() (domain.CollectionRun, bool, error) {
	rows, err := s.Query("collection_history", nil, "-created_at", 1)
	if err != nil || len(rows) == 0 {
		return domain.CollectionRun{}, false, err
	}
	return scanCollectionRun(rows[0]), true, nil
}

// CollectionRunByID looks up one run by id.
func (s *Store) CollectionRunByID(id string) (domain.CollectionRun, bool, error) {
	rows, err := s.Query("collection_history", Filter{"id": id}, "", 1)
	if err != nil || len(rows) == 0 {
		return domain.CollectionRun{}, false, err
	}
	return scanCollectionRun(rows[0]), true, nil
}

func scanCollectionRun(r Row) domain.CollectionRun {
	createdAt, _ := time.Parse(time.RFC3339, asString(r["created_at"]))
	updatedAt, _ := time.Parse(time.RFC3339, asString(r["updated_at"]))
	return domain.CollectionRun{
		ID: asString(r["id"]), Type: domain.RunType(asString(r["type"])),
		StartDate: asString(r["start_date"]), EndDate: asString(r["end_date"]),
		Status: domain.RunStatus(asString(r["status"])),
		StockCount: asInt(r["stock_count"]), KlineCount: asInt(r["kline_count"]),
		FlowCount: asInt(r["flow_count"]), IndicatorCount: asInt(r["indicator_count"]),
		ElapsedSec: asFloat(r["elapsed_sec"]), Error: asString(r["error"]),
		CreatedAt: createdAt, UpdatedAt: updatedAt,
	}
}
