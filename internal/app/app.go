// Package app wires the configured collaborators into a ready coordinator.
// Every binary under cmd/ starts here.
package app

import (
	"context"
	"fmt"

	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/coordinator"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/eligibility"
	"github.com/dvloznov/bizledger/internal/format"
	"github.com/dvloznov/bizledger/internal/gcs"
	"github.com/dvloznov/bizledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/bizledger/internal/infra/bigquery"
	"github.com/dvloznov/bizledger/internal/infra/sqlite"
	"github.com/dvloznov/bizledger/internal/sources/bank"
	"github.com/dvloznov/bizledger/internal/sources/processor"
	"github.com/dvloznov/bizledger/internal/store"
	"github.com/rs/zerolog"
)

// App holds the wired dashboard and the resources that must be released.
type App struct {
	Config      *config.Config
	Coordinator *coordinator.Coordinator
	Money       *format.Money
	Storage     gcs.StorageService
	Log         zerolog.Logger

	store store.ExpenseStore
}

// New builds the app from cfg: expense store, allow-list, provider clients
// and coordinator. Stored manual expenses are loaded before returning.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	money, err := format.NewMoney(cfg.CurrencyCode, cfg.CurrencyLocale)
	if err != nil {
		return nil, fmt.Errorf("New: currency: %w", err)
	}

	storage := gcsuploader.NewGCSStorageService()

	allow, err := eligibility.LoadAllowList(ctx, cfg.AllowListSource, storage)
	if err != nil {
		return nil, fmt.Errorf("New: allow-list: %w", err)
	}
	log.Info().
		Int("vendors", allow.Len()).
		Str("source", cfg.AllowListSource).
		Msg("Loaded vendor allow-list")

	expenses, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("New: %w", err)
	}

	income := processor.NewClient(processor.Config{
		BaseURL:   cfg.StripeAPIURL,
		SecretKey: cfg.StripeSecretKey,
		Logger:    log.With().Str("component", "processor").Logger(),
	})
	bankClient := bank.NewClient(bank.Config{
		BaseURL:  cfg.MercuryAPIURL,
		Accounts: cfg.MercuryAccounts,
		Filter:   eligibility.NewFilter(allow, nil),
		Logger:   log.With().Str("component", "bank").Logger(),
	})

	coord := coordinator.New(coordinator.Config{
		Income:   income,
		Bank:     bankClient,
		Store:    expenses,
		Settings: domain.DefaultTaxSettings(cfg.TaxCountry),
		Logger:   log.With().Str("component", "coordinator").Logger(),
	})

	a := &App{
		Config:      cfg,
		Coordinator: coord,
		Money:       money,
		Storage:     storage,
		Log:         log,
		store:       expenses,
	}

	if err := coord.LoadManual(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("New: %w", err)
	}
	return a, nil
}

// OpenStore opens the configured expense store. The memory backend has no
// store: manual entries then live only as long as the process.
func OpenStore(ctx context.Context, cfg *config.Config) (store.ExpenseStore, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := sqlite.NewDatabase(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: sqlite: %w", err)
		}
		return db, nil
	case config.StoreBigQuery:
		repo, err := infraBQ.NewExpenseRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: bigquery: %w", err)
		}
		return repo, nil
	default:
		return nil, nil
	}
}

// Close waits for background fetches and releases the expense store.
func (a *App) Close() error {
	a.Coordinator.Wait()
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
