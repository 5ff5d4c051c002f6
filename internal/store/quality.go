package store

import "time"

// QualityMetric is one persisted data_quality_monitor row.
type QualityMetric struct {
	ID         string
	Metric     string
	Value      float64
	Threshold  float64
	IsHealthy  bool
	AlertLevel string
	CreatedAt  time.Time
}

// SaveQualityMetrics persists one monitoring pass's metric rows.
func (s *Store) SaveQualityMetrics(metrics []QualityMetric) error {
	rows := make([]Row, len(metrics))
	for i, m := range metrics {
		rows[i] = Row{
			"id": m.ID, "metric": m.Metric, "value": m.Value, "threshold": m.Threshold,
			"is_healthy": boolToInt(m.IsHealthy), "alert_level": m.AlertLevel,
			"created_at": m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return s.UpsertBatch("data_quality_monitor", rows)
}

// LatestQualityMetrics returns up to limit rows, newest created_at first.
// Rows are not grouped by metric name or limited to one monitoring pass.
func (s *Store) LatestQualityMetrics(limit int) ([]QualityMetric, error) {
	rows, err := s.Query("data_quality_monitor", nil, "-created_at", limit)
	if err != nil {
		return nil, err
	}
	out := make([]QualityMetric, len(rows))
	for i, r := range rows {
		createdAt, _ := time.Parse(time.RFC3339, asString(r["created_at"]))
		out[i] = QualityMetric{
			ID: asString(r["id"]), Metric: asString(r["metric"]), Value: asFloat(r["value"]),
			Threshold: asFloat(r["threshold"]), IsHealthy: asBool(r["is_healthy"]),
			AlertLevel: asString(r["alert_level"]), CreatedAt: createdAt,
		}
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
