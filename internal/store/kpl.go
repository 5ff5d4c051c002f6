package store

import "github.com/aristath/ashare-screener/internal/domain"

// UpsertKplConcepts writes one trade-day's concept-level theme-heat rows.
func (s *Store) UpsertKplConcepts(concepts []domain.KplConcept) error {
	rows := make([]Row, len(concepts))
	for i, c := range concepts {
		rows[i] = Row{
			"date": c.Date, "concept_code": c.ConceptCode, "concept_name": c.ConceptName,
			"zt_num": c.ZTNum, "up_num": c.UpNum,
		}
	}
	return s.UpsertBatch("kpl_concepts", rows)
}

// UpsertKplConceptConstituents writes one trade-day's concept-membership rows.
func (s *Store) UpsertKplConceptConstituents(cons []domain.KplConceptCons) error {
	rows := make([]Row, len(cons))
	for i, c := range cons {
		rows[i] = Row{
			"date": c.Date, "concept_code": c.ConceptCode, "stock_code": c.StockCode, "hot_num": c.HotNum,
		}
	}
	return s.UpsertBatch("kpl_concept_cons", rows)
}

// StockConcepts returns the concepts a stock belonged to on date, highest
// hot_num first.
func (s *Store) StockConcepts(date, stockCode string) ([]domain.KplConceptCons, error) {
	rows, err := s.Query("kpl_concept_cons", Filter{"date": date, "stock_code": stockCode}, "-hot_num", 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.KplConceptCons, len(rows))
	for i, r := range rows {
		out[i] = domain.KplConceptCons{
			Date: asString(r["date"]), ConceptCode: asString(r["concept_code"]),
			StockCode: asString(r["stock_code"]), HotNum: asInt(r["hot_num"]),
		}
	}
	return out, nil
}

// ConceptHeat returns a concept's heat row on date, if any.
func (s *Store) ConceptHeat(date, conceptCode string) (domain.KplConcept, bool, error) {
	rows, err := s.Query("kpl_concepts", Filter{"date": date, "concept_code": conceptCode}, "", 1)
	if err != nil || len(rows) == 0 {
		return domain.KplConcept{}, false, err
	}
	r := rows[0]
	return domain.KplConcept{
		Date: asString(r["date"]), ConceptCode: asString(r["concept_code"]), ConceptName: asString(r["concept_name"]),
		ZTNum: asInt(r["zt_num"]), UpNum: asInt(r["up_num"]),
	}, true, nil
}
