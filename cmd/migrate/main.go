package main

import (
	"context"
	"flag"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/bizledger/internal/config"
	infraBQ "github.com/dvloznov/bizledger/internal/infra/bigquery"
	"github.com/dvloznov/bizledger/internal/logger"
)

func main() {
	var (
		envFile       = flag.String("env-file", ".env", "Optional .env file")
		projectID     = flag.String("project", "", "GCP project ID (overrides BIGQUERY_PROJECT)")
		datasetID     = flag.String("dataset", "", "BigQuery dataset ID (overrides BIGQUERY_DATASET)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "", "Directory of NNNN_name.sql files (default: the migrations built into the binary)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New()
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithLevel(cfg.LogLevel)

	if *projectID == "" {
		*projectID = cfg.BigQueryProject
	}
	if *datasetID == "" {
		*datasetID = cfg.BigQueryDataset
	}
	if *projectID == "" {
		log.Fatal().Msg("Error: -project or BIGQUERY_PROJECT is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create BigQuery client")
	}
	defer client.Close()

	dir := infraBQ.Migrations()
	if *migrationsDir != "" {
		dir = os.DirFS(*migrationsDir)
	}

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	applied, err := infraBQ.MigrateWithClient(ctx, client, *projectID, *datasetID, dir, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Int("applied", applied).Msg("Migration failed")
	}

	if applied == 0 {
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
		return
	}
	log.Info().Int("applied", applied).Msg("Migrations applied")
}
