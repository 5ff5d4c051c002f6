// Package selection fans a strategy run out across the tracked universe: per
// stock it loads candles/fundamentals, runs FactorEngine then
// StrategyEvaluator, applies cross-cutting filters, buckets survivors by
// exchange, and persists the run under a fresh UUID.
package selection

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/factors"
	"github.com/aristath/ashare-screener/internal/strategy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// recentWindowDays bounds how far back the eligibility/history window looks.
const recentWindowDays = 120

// maxCandleWindow matches FactorEngine's own input cap.
const maxCandleWindow = 60

// defaultBatchSize caps how many in-flight results accumulate between
// progress ticks.
const defaultBatchSize = 256

// Store is the slice of *store.Store the runner actually needs; declared
// narrowly so tests can supply a fake instead of a real sqlite-backed store.
type Store interface {
	ListStocks() ([]domain.Stock, error)
	DistinctTradingDaysSince(since string) (int, error)
	CandleCountSince(code, since string) (int, error)
	QueryCandles(code string, limit int) ([]domain.Candle, error)
	LatestDailyBasic(code string) (domain.DailyBasic, bool, error)
	LatestFundFlow(code string) (domain.FundFlow, bool, error)
	SectorMoneyFlowHistory(sectorCode string, limit int) ([]domain.SectorMoneyFlow, error)
	SaveScoredStocks([]domain.ScoredStock) error
}

// ProgressSink receives monotonic progress ticks. Implementations must not
// panic; the runner recovers and logs instead of aborting the run.
type ProgressSink func(processed, total, selected int)

// Params is one Run invocation's parameters (spec.md §4.7).
type Params struct {
	StrategyID    domain.StrategyID
	MinScore      float64
	MaxResults    int
	UptrendReq    bool
	HotSectorReq  bool
	BreakoutReq   bool
	Progress      ProgressSink
}

// Runner executes strategy scoring runs across the tracked universe.
type Runner struct {
	store       Store
	factors     *factors.Engine
	strategy    *strategy.Evaluator
	concurrency int
	batchSize   int
	log         zerolog.Logger
}

// Config tunes Runner's fan-out width and batch size; zero values fall back
// to the spec defaults.
type Config struct {
	Concurrency int
	BatchSize   int
}

// New constructs a Runner. concurrency <= 0 resolves to
// min(32, max(4, 2*NumCPU())); batchSize <= 0 resolves to 256.
func New(st Store, fe *factors.Engine, se *strategy.Evaluator, cfg Config, log zerolog.Logger) *Runner {
	c := cfg.Concurrency
	if c <= 0 {
		c = defaultConcurrency()
	}
	b := cfg.BatchSize
	if b <= 0 {
		b = defaultBatchSize
	}
	return &Runner{store: st, factors: fe, strategy: se, concurrency: c, batchSize: b, log: log}
}

func defaultConcurrency() int {
	c := 2 * runtime.NumCPU()
	if c < 4 {
		c = 4
	}
	if c > 32 {
		c = 32
	}
	return c
}

// analysisResult is one stock's scored outcome, or a reason it was dropped.
type analysisResult struct {
	score domain.ScoredStock
	kept  bool
}

// Run executes one strategy scoring pass over the universe and returns the
// persisted, bucketed, score-sorted selection.
func (r *Runner) Run(ctx context.Context, p Params) ([]domain.ScoredStock, string, error) {
	runID := uuid.NewString()
	now := time.Now()

	if p.MaxResults == 0 {
		r.tick(p.Progress, 0, 0, 0)
		return nil, runID, nil
	}

	universe, err := r.eligibleUniverse()
	if err != nil {
		return nil, "", err
	}
	total := len(universe)
	if total == 0 {
		r.tick(p.Progress, 0, 0, 0)
		return nil, runID, nil
	}

	type job struct {
		idx   int
		stock domain.Stock
	}
	type outcome struct {
		idx    int
		result analysisResult
	}

	jobs := make(chan job, total)
	results := make(chan outcome, total)

	width := r.concurrency
	if total < width {
		width = total
	}

	var wg sync.WaitGroup
	for i := 0; i < width; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := r.analyze(ctx, j.stock, p)
				results <- outcome{idx: j.idx, result: res}
			}
		}()
	}
	for i, st := range universe {
		jobs <- job{idx: i, stock: st}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	processed := 0
	selected := 0
	var kept []domain.ScoredStock
	for out := range results {
		processed++
		if out.result.kept {
			selected++
			out.result.score.RunID = runID
			out.result.score.CreatedAt = now
			kept = append(kept, out.result.score)
		}
		if processed%r.batchSize == 0 || processed == total {
			r.tick(p.Progress, processed, total, selected)
		}
	}

	final := bucketAndLimit(kept, p.MaxResults)
	if err := r.store.SaveScoredStocks(final); err != nil {
		return nil, runID, err
	}
	return final, runID, nil
}

func (r *Runner) tick(sink ProgressSink, processed, total, selected int) {
	if sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn().Interface("panic", rec).Msg("selection progress callback panicked, continuing run")
		}
	}()
	sink(processed, total, selected)
}

// eligibleUniverse returns stocks with at least requiredDays candles within
// the last recentWindowDays. requiredDays scales from 20 down to 3 as the
// whole tracked market's own available history shrinks (a newly-seeded
// store should not exclude every stock on day one).
func (r *Runner) eligibleUniverse() ([]domain.Stock, error) {
	all, err := r.store.ListStocks()
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -recentWindowDays).Format("2006-01-02")

	marketDays, err := r.store.DistinctTradingDaysSince(since)
	if err != nil {
		return nil, err
	}
	requiredDays := marketDays
	if requiredDays > 20 {
		requiredDays = 20
	}
	if requiredDays < 3 {
		requiredDays = 3
	}

	var eligible []domain.Stock
	for _, st := range all {
		n, err := r.store.CandleCountSince(st.Code, since)
		if err != nil {
			return nil, err
		}
		if n >= requiredDays {
			eligible = append(eligible, st)
		}
	}
	return eligible, nil
}

// analyze runs FactorEngine then StrategyEvaluator for one stock and applies
// the cross-cutting filters from spec.md §4.7 step 3.
func (r *Runner) analyze(ctx context.Context, st domain.Stock, p Params) analysisResult {
	select {
	case <-ctx.Done():
		return analysisResult{}
	default:
	}

	candles, err := r.store.QueryCandles(st.Code, maxCandleWindow)
	if err != nil || len(candles) == 0 {
		return analysisResult{}
	}
	basic, _, _ := r.store.LatestDailyBasic(st.Code)
	flow, flowOK, _ := r.store.LatestFundFlow(st.Code)

	var basicPtr *domain.DailyBasic
	if basic.Code != "" {
		basicPtr = &basic
	}
	var flowPtr *domain.FundFlow
	if flowOK {
		flowPtr = &flow
	}

	var change5d, mainFlow *float64
	if st.Industry != "" {
		if hist, err := r.store.SectorMoneyFlowHistory(st.Industry, 6); err == nil && len(hist) >= 2 {
			first, last := hist[0], hist[len(hist)-1]
			if first.Close != 0 {
				c := (last.Close/first.Close - 1) * 100
				change5d = &c
			}
			m := last.ExtraLarge.Amount + last.Large.Amount
			mainFlow = &m
		}
	}

	fs := r.factors.Compute(factors.Input{
		Code: st.Code, Industry: st.Industry, Candles: candles,
		Basic: basicPtr, Flow: flowPtr, SectorChange5D: change5d, SectorMainFlow: mainFlow,
	})
	if fs.Empty {
		return analysisResult{}
	}

	score, err := r.strategy.Evaluate(fs, p.StrategyID, st.Name, st.Industry)
	if err != nil {
		return analysisResult{}
	}

	if !passesCrossCuttingFilters(fs, score, p) {
		return analysisResult{}
	}
	return analysisResult{score: score, kept: true}
}

func passesCrossCuttingFilters(fs domain.FactorSet, score domain.ScoredStock, p Params) bool {
	if score.CompositeScore < p.MinScore {
		return false
	}
	if p.UptrendReq && domain.OrDefault(fs.SlopePct, 0) < 0.2 {
		return false
	}
	if p.HotSectorReq && domain.OrDefault(fs.SectorHeat, 0) < 30 {
		return false
	}
	if p.BreakoutReq {
		if p.StrategyID == domain.StrategyMomentumBreakout {
			if !fs.PriceBreakout {
				return false
			}
		} else if !fs.PriceBreakout && !fs.VolBreakout {
			return false
		}
	}
	return true
}

// exchangeBucket classifies code by its leading digits per spec.md §4.7
// step 4 (primary: "60"; secondary: "00"/"30"; else other).
func exchangeBucket(code string) string {
	switch {
	case len(code) >= 2 && code[:2] == "60":
		return "primary"
	case len(code) >= 2 && (code[:2] == "00" || code[:2] == "30"):
		return "secondary"
	default:
		return "other"
	}
}

// bucketAndLimit sorts each exchange bucket by composite score descending,
// takes maxResults/3 from each, and pools any shortfall across buckets
// (score-desc) to fill back up to maxResults.
func bucketAndLimit(scored []domain.ScoredStock, maxResults int) []domain.ScoredStock {
	if maxResults <= 0 {
		return nil
	}
	if len(scored) == 0 {
		return sortedDesc(scored)
	}

	buckets := map[string][]domain.ScoredStock{}
	for _, s := range scored {
		b := exchangeBucket(s.Code)
		buckets[b] = append(buckets[b], s)
	}
	for k := range buckets {
		buckets[k] = sortedDesc(buckets[k])
	}

	perBucket := maxResults / 3
	var picked []domain.ScoredStock
	var leftover []domain.ScoredStock
	for _, name := range []string{"primary", "secondary", "other"} {
		b := buckets[name]
		if len(b) > perBucket {
			picked = append(picked, b[:perBucket]...)
			leftover = append(leftover, b[perBucket:]...)
		} else {
			picked = append(picked, b...)
		}
	}

	if len(picked) < maxResults {
		leftover = sortedDesc(leftover)
		need := maxResults - len(picked)
		if need > len(leftover) {
			need = len(leftover)
		}
		picked = append(picked, leftover[:need]...)
	}

	picked = sortedDesc(picked)
	if len(picked) > maxResults {
		picked = picked[:maxResults]
	}
	return picked
}

func sortedDesc(s []domain.ScoredStock) []domain.ScoredStock {
	out := make([]domain.ScoredStock, len(s))
	copy(out, s)
	sort.Slice(out, func(i, j int) bool { return out[i].CompositeScore > out[j].CompositeScore })
	return out
}
