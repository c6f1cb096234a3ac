package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/bizledger/internal/app"
	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/logger"
	"github.com/dvloznov/bizledger/internal/notionsync"
)

func main() {
	// Parse CLI flags
	envFile := flag.String("env-file", ".env", "Optional .env file")
	notionToken := flag.String("notion-token", "", "Notion API token (overrides NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (overrides NOTION_DB_ID)")
	skipBank := flag.Bool("skip-bank", false, "Mirror stored manual entries only, without a bank import")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	if *notionToken == "" {
		*notionToken = cfg.NotionToken
	}
	if *notionDBID == "" {
		*notionDBID = cfg.NotionDBID
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token or NOTION_TOKEN is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id or NOTION_DB_ID is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize dashboard")
	}
	defer a.Close()

	if !*skipBank {
		if err := a.Coordinator.FetchBankExpenses(ctx); err != nil {
			log.Fatal().Err(err).Msg("Bank import failed")
		}
	}

	notionClient := notionsync.NewNotionClient(*notionToken)
	res, err := notionsync.SyncTransactions(ctx, notionClient, *notionDBID, a.Coordinator.Transactions(), *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived, %d failed.\n", res.Created, res.Updated, res.Archived, res.Failed)
}
