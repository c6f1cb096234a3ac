// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/dvloznov/bizledger/internal/sources/bank"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StoreBigQuery = "bigquery"
)

// Config holds every runtime setting.
type Config struct {
	Port     string
	LogLevel string

	StripeSecretKey string
	StripeAPIURL    string

	MercuryAPIURL   string
	MercuryAccounts []bank.Account

	// AllowListSource is a local path or gs:// URI; empty uses the built-in list.
	AllowListSource string

	CurrencyCode   string
	CurrencyLocale string
	TaxCountry     domain.Country

	StoreBackend    string
	SQLitePath      string
	BigQueryProject string
	BigQueryDataset string

	ExportBucket string

	NotionToken string
	NotionDBID  string
}

// Load reads envFile (if it exists) into the process environment without
// overriding variables already set, then builds the config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("Load: reading %s: %w", envFile, err)
		}
	}
	return FromLookup(os.Getenv)
}

// FromLookup builds the config from getenv.
func FromLookup(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	country, err := domain.ParseCountry(strings.ToUpper(get("TAX_COUNTRY", string(domain.CountryFR))))
	if err != nil {
		return nil, fmt.Errorf("FromLookup: TAX_COUNTRY: %w", err)
	}

	cfg := &Config{
		Port:            get("PORT", "8080"),
		LogLevel:        get("LOG_LEVEL", "info"),
		StripeSecretKey: get("STRIPE_SECRET_KEY", ""),
		StripeAPIURL:    get("STRIPE_API_URL", ""),
		MercuryAPIURL:   get("MERCURY_API_URL", ""),
		MercuryAccounts: mercuryAccounts(get),
		AllowListSource: get("ALLOWLIST_SOURCE", ""),
		CurrencyCode:    strings.ToUpper(get("CURRENCY_CODE", "EUR")),
		CurrencyLocale:  get("CURRENCY_LOCALE", "fr-FR"),
		TaxCountry:      country,
		StoreBackend:    strings.ToLower(get("STORE_BACKEND", StoreMemory)),
		SQLitePath:      get("SQLITE_PATH", "bizledger.db"),
		BigQueryProject: get("BIGQUERY_PROJECT", ""),
		BigQueryDataset: get("BIGQUERY_DATASET", "bizledger"),
		ExportBucket:    get("EXPORT_BUCKET", ""),
		NotionToken:     get("NOTION_TOKEN", ""),
		NotionDBID:      get("NOTION_DB_ID", ""),
	}

	switch cfg.StoreBackend {
	case StoreMemory, StoreSQLite:
	case StoreBigQuery:
		if cfg.BigQueryProject == "" {
			return nil, &domain.ConfigError{Setting: "BIGQUERY_PROJECT", Message: "BIGQUERY_PROJECT is required for the bigquery store"}
		}
	default:
		return nil, &domain.ConfigError{
			Setting: "STORE_BACKEND",
			Message: fmt.Sprintf("unknown STORE_BACKEND %q (want memory, sqlite or bigquery)", cfg.StoreBackend),
		}
	}

	return cfg, nil
}

// mercuryAccounts reads MERCURY_ACCOUNTS (comma-separated names) and each
// account's MERCURY_<NAME>_API_KEY and MERCURY_<NAME>_ACCOUNT_IDS. Missing
// keys are kept empty so the bank client reports them on first use.
func mercuryAccounts(get func(key, def string) string) []bank.Account {
	var accounts []bank.Account
	for _, name := range splitList(get("MERCURY_ACCOUNTS", "")) {
		prefix := "MERCURY_" + strings.ToUpper(name) + "_"
		accounts = append(accounts, bank.Account{
			Name:       name,
			APIKey:     get(prefix+"API_KEY", ""),
			AccountIDs: splitList(get(prefix+"ACCOUNT_IDS", "")),
		})
	}
	return accounts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
