// Package main wires the screening engine's core components together and
// runs them as a long-lived process: load config, open the Store, build the
// SourceRouter over the primary/secondary adapters, run one incremental
// ingestion pass and one quality pass at startup, then idle a JobManager
// until told to stop. HTTP, scheduling, and CLI triggering are external
// collaborators (see spec scope); this binary only owns the core pipeline.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/ashare-screener/internal/config"
	"github.com/aristath/ashare-screener/internal/domain"
	"github.com/aristath/ashare-screener/internal/factors"
	"github.com/aristath/ashare-screener/internal/ingestion"
	"github.com/aristath/ashare-screener/internal/jobs"
	"github.com/aristath/ashare-screener/internal/quality"
	"github.com/aristath/ashare-screener/internal/selection"
	"github.com/aristath/ashare-screener/internal/sources/primary"
	"github.com/aristath/ashare-screener/internal/sources/router"
	"github.com/aristath/ashare-screener/internal/sources/secondary"
	"github.com/aristath/ashare-screener/internal/store"
	"github.com/aristath/ashare-screener/internal/strategy"
	"github.com/aristath/ashare-screener/pkg/logger"
)

// startupLookbackDays bounds the incremental ingestion pass run at boot.
const startupLookbackDays = 7

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{Level: "info", Pretty: true}).
			Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Msg("starting ashare-screener")

	st, err := store.New(store.Config{Path: cfg.DataDir + "/screener.db", Profile: store.ProfileStandard})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.Close()

	primaryAdapter := primary.New(cfg.PrimaryVendorToken, log)
	defer primaryAdapter.Close()
	secondaryAdapter := secondary.New(log)
	rt := router.New(cfg.RouterCacheTTL, log, primaryAdapter, secondaryAdapter)

	engine := ingestion.New(st, rt, ingestion.Config{
		CallDelay: cfg.VendorCallDelay, RetryCount: cfg.VendorRetryCount, RetryBaseDelay: cfg.VendorRetryBaseDelay,
	}, log)

	fe := factors.New()
	se := strategy.New()
	runner := selection.New(st, fe, se, selection.Config{
		Concurrency: cfg.SelectionConcurrency, BatchSize: cfg.SelectionBatchSize,
	}, log)
	jobManager := jobs.New()
	monitor := quality.New(st, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().Msg("running startup ingestion pass")
	if run, err := engine.RunIncremental(ctx, startupLookbackDays, true, false); err != nil {
		log.Error().Err(err).Msg("startup ingestion pass failed")
	} else {
		log.Info().Str("run_id", run.ID).Int("stocks", run.StockCount).Msg("startup ingestion pass completed")
	}

	log.Info().Msg("running startup quality pass")
	if report, err := monitor.Run(); err != nil {
		log.Error().Err(err).Msg("startup quality pass failed")
	} else {
		log.Info().Float64("overall_score", report.OverallScore).Str("level", report.QualityLevel).
			Msg("startup quality pass completed")
	}

	jobID := jobManager.Submit(map[string]any{"strategy_id": int(domain.StrategyMomentumBreakout)},
		func(jctx jobs.Context) (any, error) {
			results, runID, err := runner.Run(ctx, selection.Params{
				StrategyID: domain.StrategyMomentumBreakout, MaxResults: 50,
				Progress: func(processed, total, selected int) { jctx.Report(processed, total, selected) },
			})
			if err != nil {
				return nil, err
			}
			return map[string]any{"run_id": runID, "selected": len(results)}, nil
		})
	log.Info().Str("job_id", jobID).Msg("submitted startup selection run")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping")
	cancel()

	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := jobManager.Get(jobID); ok && job.Status != domain.JobPending && job.Status != domain.JobRunning {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	log.Info().Msg("stopped")
}
