// Package domain defines the core entities and value types shared across the
// ingestion, factor, strategy, selection, job, and quality components.
package domain

import "time"

// Exchange is the board a stock trades on, derived from its ts_code suffix.
type Exchange string

const (
	ExchangePrimary   Exchange = "primary"   // Shanghai (.SH), leading "60"/"688"
	ExchangeSecondary Exchange = "secondary" // Shenzhen (.SZ), leading "00"/"30"
	ExchangeOther     Exchange = "other"
)

// Stock is the static identity row for a listed security.
type Stock struct {
	Code     string // bare code, e.g. "000001"
	RawCode  string // vendor ts_code, e.g. "000001.SZ"
	Name     string
	Exchange Exchange
	Industry string
}

// Candle is one trade-day's OHLCV bar, in canonical units (shares, yuan).
type Candle struct {
	Code   string
	Date   string // ISO-8601 YYYY-MM-DD
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64 // shares
	Amount float64 // yuan
}

// DailyBasic is one trade-day's valuation/liquidity snapshot. Pointer fields
// are nullable per spec — a partial auction-refresh upsert may populate only
// TurnoverRate/VolumeRatio/FloatShare while leaving valuation fields nil.
type DailyBasic struct {
	Code          string
	Date          string
	Close         float64
	TurnoverRate  *float64
	VolumeRatio   *float64
	PE            *float64
	PETTM         *float64
	PB            *float64
	PS            *float64
	PSTTM         *float64
	DVRatio       *float64
	DVTTM         *float64
	TotalShare    *float64
	FloatShare    *float64
	FreeShare     *float64
	TotalMV       *float64
	CircMV        *float64
}

// FundFlow is one trade-day's signed money-flow breakdown for a stock.
type FundFlow struct {
	Code               string
	Date               string
	MainFundFlow       float64
	RetailFundFlow     float64
	InstitutionalFlow  float64
	LargeOrderRatio    float64 // in [0,1]
}

// FlowBucket is one of the five ordered order-size buckets shared by
// MarketMoneyFlow and SectorMoneyFlow.
type FlowBucket struct {
	Amount float64
	Rate   float64
}

// MarketMoneyFlow is one trade-day's market-wide index + bucketed flow.
type MarketMoneyFlow struct {
	Date            string
	IndexLevel1     float64
	IndexPctChange1 float64
	IndexLevel2     float64
	IndexPctChange2 float64
	ExtraLarge      FlowBucket
	Large           FlowBucket
	Mid             FlowBucket
	Small           FlowBucket
	Net             FlowBucket
}

// SectorMoneyFlow is one trade-day's per-sector flow + rank.
type SectorMoneyFlow struct {
	Date       string
	SectorCode string
	SectorName string
	PctChange  float64
	Close      float64
	Rank       int
	ExtraLarge FlowBucket
	Large      FlowBucket
	Mid        FlowBucket
	Small      FlowBucket
	Net        FlowBucket
}

// AuctionSnapshot is one 09:26 call-auction tick for a stock.
type AuctionSnapshot struct {
	Code         string
	SnapshotTS   time.Time
	PreClose     float64
	Price        float64
	Vol          float64
	Amount       float64
	TurnoverRate float64
	VolumeRatio  float64
	FloatShare   float64
}

// KplConcept is one trade-day's concept-level theme-heat row.
type KplConcept struct {
	Date        string
	ConceptCode string
	ConceptName string
	ZTNum       int // limit-up count within the concept
	UpNum       int
}

// KplConceptCons is one trade-day's concept-membership row for a stock.
type KplConceptCons struct {
	Date        string
	ConceptCode string
	StockCode   string
	HotNum      int
}

// RunStatus is a CollectionRun's lifecycle state. Transitions only advance
// pending -> running -> (completed | failed); never reverse.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunType distinguishes a full backfill from a daily incremental pull.
type RunType string

const (
	RunFull        RunType = "full"
	RunIncremental RunType = "incremental"
)

// CollectionRun is the authoritative ingestion cursor / audit row.
type CollectionRun struct {
	ID             string
	Type           RunType
	StartDate      string
	EndDate        string
	Status         RunStatus
	StockCount     int
	KlineCount     int
	FlowCount      int
	IndicatorCount int
	ElapsedSec     float64
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Advance enforces the monotonic status machine; returns false (no-op) for
// an illegal transition instead of panicking, since a caller racing two
// writers on the same run should not crash the run.
func (r *CollectionRun) Advance(next RunStatus) bool {
	order := map[RunStatus]int{RunPending: 0, RunRunning: 1, RunCompleted: 2, RunFailed: 2}
	cur, ok1 := order[r.Status]
	nxt, ok2 := order[next]
	if !ok1 || !ok2 || nxt < cur {
		return false
	}
	if cur == 2 {
		return false // already terminal
	}
	r.Status = next
	r.UpdatedAt = time.Now()
	return true
}

// RiskLevel is a ScoredStock's presentation risk bucket.
type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskMed  RiskLevel = "med"
	RiskHigh RiskLevel = "high"
)

// HoldingPeriod is a ScoredStock's presentation horizon bucket.
type HoldingPeriod string

const (
	HoldingShort HoldingPeriod = "short"
	HoldingMid   HoldingPeriod = "mid"
	HoldingLong  HoldingPeriod = "long"
)

// StrategyID names one of the five fixed scoring strategies (spec.md §4.6).
type StrategyID int

const (
	StrategyMomentumBreakout StrategyID = 1
	StrategyTrendFollowing   StrategyID = 2
	StrategyValueGrowth      StrategyID = 3
	StrategySuperLeader      StrategyID = 4
	StrategyBottomFishing    StrategyID = 5
)

// ScoredStock is a StrategyEvaluator result, persisted as one
// advanced_selection_history row.
type ScoredStock struct {
	Code             string
	Name             string
	Industry         string
	StrategyID       StrategyID
	CompositeScore   float64
	MomentumScore    float64
	TrendScore       float64
	SectorScore      float64
	FundamentalScore float64
	ValuationScore   float64
	QualityScore     float64
	GrowthScore      float64
	VolumeScore      float64
	SentimentScore   float64
	RiskScore        float64
	SelectionReason  []string
	RiskLevel        RiskLevel
	HoldingPeriod    HoldingPeriod
	CurrentPrice     float64
	TargetPrice      float64
	StopLossPrice    float64
	BuyPoint         float64
	SellPoint        float64
	RunID            string
	CreatedAt        time.Time
}

// JobStatus is a Job's lifecycle state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobProgress tracks a running job's processed/selected counters. Percent is
// derived, never stored independently, to keep the invariant
// percent = floor(100*processed/total) trivially true.
type JobProgress struct {
	Processed int
	Total     int
	Selected  int
}

// Percent implements spec.md §3's Job.progress.percent invariant.
func (p JobProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return (100 * p.Processed) / p.Total
}

// Job is a JobManager-tracked long-running selection run.
type Job struct {
	ID         string
	Status     JobStatus
	Parameters map[string]any
	Progress   JobProgress
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Result     any
	Error      string
}

// HealthSample is one SourceRouter call outcome, folded into a rolling
// per-source success rate.
type HealthSample struct {
	SourceName string
	At         time.Time
	Success    bool
	LatencyMS  int64
	ResultType ResultType
}

// ResultType distinguishes a genuinely empty result from a real failure so
// SourceRouter's health rollup can exclude no_data from its denominator.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultNoData  ResultType = "no_data"
	ResultError   ResultType = "error"
)

// HealthState is a source's derived rollup bucket.
type HealthState string

const (
	HealthHealthy     HealthState = "healthy"
	HealthDegraded    HealthState = "degraded"
	HealthUnavailable HealthState = "unavailable"
)
