package store

import (
	"fmt"

	"github.com/aristath/ashare-screener/internal/domain"
)

// UpsertStock writes the static identity row for a listed security.
func (s *Store) UpsertStock(st domain.Stock) error {
	return s.Upsert("stocks", Row{
		"code":     st.Code,
		"raw_code": st.RawCode,
		"name":     st.Name,
		"exchange": string(st.Exchange),
		"industry": st.Industry,
	})
}

// UpsertStocks writes the full universe in one transaction.
func (s *Store) UpsertStocks(stocks []domain.Stock) error {
	rows := make([]Row, len(stocks))
	for i, st := range stocks {
		rows[i] = Row{
			"code":     st.Code,
			"raw_code": st.RawCode,
			"name":     st.Name,
			"exchange": string(st.Exchange),
			"industry": st.Industry,
		}
	}
	return s.UpsertBatch("stocks", rows)
}

// ListStocks returns the full tracked universe, ordered by code.
func (s *Store) ListStocks() ([]domain.Stock, error) {
	rows, err := s.Query("stocks", nil, "code", 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Stock, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Stock{
			Code:     asString(r["code"]),
			RawCode:  asString(r["raw_code"]),
			Name:     asString(r["name"]),
			Exchange: domain.Exchange(asString(r["exchange"])),
			Industry: asString(r["industry"]),
		})
	}
	return out, nil
}

// GetStock looks up a single stock by code.
func (s *Store) GetStock(code string) (domain.Stock, bool, error) {
	rows, err := s.Query("stocks", Filter{"code": code}, "", 1)
	if err != nil {
		return domain.Stock{}, false, err
	}
	if len(rows) == 0 {
		return domain.Stock{}, false, nil
	}
	r := rows[0]
	return domain.Stock{
		Code:     asString(r["code"]),
		RawCode:  asString(r["raw_code"]),
		Name:     asString(r["name"]),
		Exchange: domain.Exchange(asString(r["exchange"])),
		Industry: asString(r["industry"]),
	}, true, nil
}

// asString coerces a generic Row value (driver-returned any, usually string
// or []byte for TEXT columns) to a string.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

// asFloat coerces a generic Row value to float64, returning 0 for nil.
func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case nil:
		return 0
	default:
		return 0
	}
}

// asFloatPtr coerces a generic Row value to *float64, nil-preserving.
func asFloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	f := asFloat(v)
	return &f
}

// asInt coerces a generic Row value to int, returning 0 for nil.
func asInt(v any) int {
	switch t := v.(type) {
	case int64:
		return int(t)
	case float64:
		return int(t)
	case nil:
		return 0
	default:
		return 0
	}
}

// asBool coerces a generic Row value (stored as 0/1 INTEGER) to bool.
func asBool(v any) bool {
	return asInt(v) != 0
}
