package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/export"
	"github.com/dvloznov/sheets-ledger/internal/jobs"
	"github.com/dvloznov/sheets-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	schedule := flag.String("schedule", cfg.Export.Schedule, "Cron spec for scheduled exports (or set EXPORT_SCHEDULE env)")
	targetList := flag.String("targets", "", "Comma separated export targets (default: every configured target)")
	runNow := flag.Bool("now", true, "Export once at startup before the first scheduled run")
	flag.Parse()

	// Initialize logger
	log := logger.NewWithLevel(cfg.LogLevel)

	if *schedule == "" {
		*schedule = "@daily"
	}

	l, err := ledger.FromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks, closeSinks, err := export.SinksFromConfig(ctx, cfg.Export, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export targets")
	}
	defer closeSinks()

	svc := export.NewService(l, log, sinks...)

	targets := svc.Targets()
	if *targetList != "" {
		targets = nil
		for _, t := range strings.Split(*targetList, ",") {
			t = strings.TrimSpace(t)
			if !svc.Has(t) {
				log.Fatal().Str("target", t).Msg("Export target is not configured")
			}
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		log.Fatal().Msg("No export targets configured")
	}

	// Initialize job store and queue
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	if err := jobQueue.Start(ctx, svc.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	scheduler := export.NewScheduler(jobQueue, targets, log)
	if err := scheduler.Schedule(ctx, *schedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule exports")
	}

	log.Info().
		Strs("targets", targets).
		Str("schedule", *schedule).
		Msg("Export worker started")

	if *runNow {
		scheduler.Trigger(ctx)
	}
	scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down export worker...")
	scheduler.Stop()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	summary, _ := jobStore.ListJobs(shutdownCtx, jobs.JobFilter{Status: jobs.JobStatusFailed})
	log.Info().Int("failed_jobs", len(summary)).Msg("Export worker exited")
}
