package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/bizledger/internal/api"
	"github.com/dvloznov/bizledger/internal/app"
	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/jobs"
	"github.com/dvloznov/bizledger/internal/jobs/inmemory"
	"github.com/dvloznov/bizledger/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		envFile = flag.String("env-file", ".env", "Optional .env file to load before reading the environment")
		port    = flag.String("port", "", "HTTP server port (overrides PORT)")
		workers = flag.Int("workers", inmemory.DefaultWorkers, "Number of import job workers")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Port = *port
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}
	defer a.Close()

	if cfg.ExportBucket == "" {
		log.Warn().Msg("No EXPORT_BUCKET configured - report export will be disabled")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)
	jobQueue.SetWorkers(*workers)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", *workers).Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobs.Dispatch(a.Coordinator, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Initial refresh so the dashboard opens on current figures
	for _, jobType := range []jobs.JobType{jobs.JobTypeFetchIncome, jobs.JobTypeFetchBank} {
		if err := jobQueue.Publish(ctx, &jobs.FetchJob{Type: jobType}); err != nil {
			log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to enqueue initial import")
		}
	}

	handler := api.NewRouter(api.Deps{
		Dashboard:    a.Coordinator,
		Publisher:    jobQueue,
		JobStore:     jobStore,
		Money:        a.Money,
		Storage:      a.Storage,
		ExportBucket: cfg.ExportBucket,
		Logger:       log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreBackend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
