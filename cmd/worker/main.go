package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/bizledger/internal/app"
	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/jobs"
	"github.com/dvloznov/bizledger/internal/jobs/inmemory"
	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/dvloznov/bizledger/internal/notionsync"
	"github.com/rs/zerolog"
)

func main() {
	var (
		envFile  = flag.String("env-file", ".env", "Optional .env file")
		interval = flag.Duration("interval", 15*time.Minute, "Time between refresh rounds")
		notion   = flag.Bool("notion", false, "Mirror the ledger to Notion after each round (needs NOTION_TOKEN and NOTION_DB_ID)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}
	defer a.Close()

	var notionClient notionsync.NotionService
	if *notion {
		if cfg.NotionToken == "" || cfg.NotionDBID == "" {
			log.Fatal().Msg("Error: --notion requires NOTION_TOKEN and NOTION_DB_ID")
		}
		notionClient = notionsync.NewNotionClient(cfg.NotionToken)
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, jobStore)
	if err := jobQueue.Start(ctx, jobs.Dispatch(a.Coordinator, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Dur("interval", *interval).Bool("notion", *notion).Msg("Worker service started")

	r := &refresher{
		publisher:    jobQueue,
		store:        jobStore,
		app:          a,
		notionClient: notionClient,
		log:          log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	r.round(ctx)
	for running := true; running; {
		select {
		case <-ticker.C:
			r.round(ctx)
		case <-quit:
			running = false
		}
	}

	log.Info().Msg("Shutting down worker service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// refresher runs one import round: both fetch jobs, then the optional mirror.
type refresher struct {
	publisher    jobs.Publisher
	store        jobs.JobStore
	app          *app.App
	notionClient notionsync.NotionService
	log          zerolog.Logger
}

func (r *refresher) round(ctx context.Context) {
	// follow the calendar month so a long-running worker rolls over
	c := r.app.Coordinator
	now := time.Now().UTC()
	if current := c.DateRange(); !current.Contains(now) {
		if err := c.SetDateRange(domain.MonthRange(now)); err != nil {
			r.log.Error().Err(err).Msg("Failed to roll date range")
		}
	}

	var ids []string
	for _, jobType := range []jobs.JobType{jobs.JobTypeFetchIncome, jobs.JobTypeFetchBank} {
		job := &jobs.FetchJob{Type: jobType}
		if err := r.publisher.Publish(ctx, job); err != nil {
			r.log.Error().Err(err).Str("job_type", string(jobType)).Msg("Failed to enqueue refresh")
			continue
		}
		ids = append(ids, job.JobID)
	}

	failed := r.wait(ctx, ids)
	status := c.Status()
	r.log.Info().
		Int("jobs", len(ids)).
		Int("failed", failed).
		Str("error", status.Error).
		Str("net_income", c.Summary().NetIncome.StringFixed(2)).
		Msg("Refresh round completed")

	if r.notionClient == nil {
		return
	}
	if _, err := notionsync.SyncTransactions(ctx, r.notionClient, r.app.Config.NotionDBID, c.Transactions(), false); err != nil {
		r.log.Error().Err(err).Msg("Notion mirror failed")
	}
}

// wait polls the job store until every job is terminal and returns how many
// failed.
func (r *refresher) wait(ctx context.Context, ids []string) int {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	failed := 0
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for len(pending) > 0 {
		for id := range pending {
			job, err := r.store.GetJob(ctx, id)
			if err != nil {
				continue
			}
			switch job.Status {
			case jobs.JobStatusCompleted:
				delete(pending, id)
			case jobs.JobStatusFailed:
				failed++
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return failed
		case <-ticker.C:
		}
	}
	return failed
}
