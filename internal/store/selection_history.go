package store

import (
	"strings"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
)

// SaveScoredStocks persists one selection run's results in one transaction.
func (s *Store) SaveScoredStocks(stocks []domain.ScoredStock) error {
	rows := make([]Row, len(stocks))
	for i, sc := range stocks {
		rows[i] = Row{
			"run_id": sc.RunID, "code": sc.Code, "date": sc.CreatedAt.UTC().Format("2006-01-02"),
			"strategy_id": int(sc.StrategyID), "name": sc.Name, "industry": sc.Industry,
			"composite_score": sc.CompositeScore,
			"momentum_score": sc.MomentumScore, "trend_score": sc.TrendScore, "sector_score": sc.SectorScore,
			"fundamental_score": sc.FundamentalScore, "valuation_score": sc.ValuationScore,
			"quality_score": sc.QualityScore, "growth_score": sc.GrowthScore, "volume_score": sc.VolumeScore,
			"sentiment_score": sc.SentimentScore, "risk_score": sc.RiskScore,
			"selection_reason": strings.Join(sc.SelectionReason, "; "),
			"risk_level":        string(sc.RiskLevel), "holding_period": string(sc.HoldingPeriod),
			"current_price": sc.CurrentPrice, "target_price": sc.TargetPrice, "stop_loss_price": sc.StopLossPrice,
			"buy_point": sc.BuyPoint, "sell_point": sc.SellPoint,
			"created_at": sc.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return s.UpsertBatch("advanced_selection_history", rows)
}

// SelectionHistory returns up to limit most-recent rows for a strategy,
// newest first.
func (s *Store) SelectionHistory(strategyID domain.StrategyID, limit int) ([]domain.ScoredStock, error) {
	rows, err := s.Query("advanced_selection_history", Filter{"strategy_id": int(strategyID)}, "-created_at", limit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ScoredStock, len(rows))
	for i, r := range rows {
		createdAt, _ := time.Parse(time.RFC3339, asString(r["created_at"]))
		var reasons []string
		if raw := asString(r["selection_reason"]); raw != "" {
			reasons = strings.Split(raw, "; ")
		}
		out[i] = domain.ScoredStock{
			Code: asString(r["code"]), Name: asString(r["name"]), Industry: asString(r["industry"]),
			StrategyID: domain.StrategyID(asInt(r["strategy_id"])), CompositeScore: asFloat(r["composite_score"]),
			MomentumScore: asFloat(r["momentum_score"]), TrendScore: asFloat(r["trend_score"]),
			SectorScore: asFloat(r["sector_score"]), FundamentalScore: asFloat(r["fundamental_score"]),
			ValuationScore: asFloat(r["valuation_score"]), QualityScore: asFloat(r["quality_score"]),
			GrowthScore: asFloat(r["growth_score"]), VolumeScore: asFloat(r["volume_score"]),
			SentimentScore: asFloat(r["sentiment_score"]), RiskScore: asFloat(r["risk_score"]),
			SelectionReason: reasons,
			RiskLevel:       domain.RiskLevel(asString(r["risk_level"])),
			HoldingPeriod:   domain.HoldingPeriod(asString(r["holding_period"])),
			CurrentPrice:    asFloat(r["current_price"]), TargetPrice: asFloat(r["target_price"]),
			StopLossPrice: asFloat(r["stop_loss_price"]), BuyPoint: asFloat(r["buy_point"]), SellPoint: asFloat(r["sell_point"]),
			RunID: asString(r["run_id"]), CreatedAt: createdAt,
		}
	}
	return out, nil
}
