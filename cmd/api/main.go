package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/sheets-ledger/internal/api"
	"github.com/dvloznov/sheets-ledger/internal/api/handlers"
	"github.com/dvloznov/sheets-ledger/internal/config"
	"github.com/dvloznov/sheets-ledger/internal/export"
	"github.com/dvloznov/sheets-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/sheets-ledger/internal/ledger"
	"github.com/dvloznov/sheets-ledger/internal/logger"
	"github.com/dvloznov/sheets-ledger/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.Int("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	// Initialize the ledger over the configured table backend
	l, err := ledger.FromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger")
	}

	ctx := context.Background()

	sinks, closeSinks, err := export.SinksFromConfig(ctx, cfg.Export, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export targets")
	}
	defer closeSinks()

	exportService := export.NewService(l, log, sinks...)
	if len(sinks) == 0 {
		log.Warn().Msg("No export targets configured - exports will be rejected")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Strs("targets", exportService.Targets()).Msg("Starting export worker")
	if err := jobQueue.Start(workerCtx, exportService.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export worker")
	}

	var scheduler *export.Scheduler
	if cfg.Export.Schedule != "" && len(sinks) > 0 {
		scheduler = export.NewScheduler(jobQueue, exportService.Targets(), log)
		if err := scheduler.Schedule(workerCtx, cfg.Export.Schedule); err != nil {
			log.Fatal().Err(err).Msg("Failed to schedule exports")
		}
		scheduler.Start()
	}

	router := api.NewRouter(api.Deps{
		Transactions: handlers.NewTransactionsHandler(l, log),
		Exports:      handlers.NewExportsHandler(exportService, jobQueue, log),
		Jobs:         handlers.NewJobsHandler(jobStore, log),
		Static:       web.NewHandler(cfg.StaticDir, log),
	}, log)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(*port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Int("port", *port).
			Str("backend", cfg.TableBackend).
			Str("row_identity", l.Scheme().Name()).
			Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	// Stop job queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
