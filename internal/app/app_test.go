package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/config"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.FromLookup(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("FromLookup failed: %v", err)
	}
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	cfg := testConfig(t, map[string]string{"TAX_COUNTRY": "EU"})

	a, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if got := a.Coordinator.TaxSettings().Country; got != domain.CountryEU {
		t.Errorf("Country = %s, want EU", got)
	}
	if a.Money.Code() != "EUR" {
		t.Errorf("currency = %s", a.Money.Code())
	}

	// unconfigured providers surface as config errors on use
	if err := a.Coordinator.FetchNetSales(context.Background()); !domain.IsConfig(err) {
		t.Errorf("FetchNetSales err = %v, want config error", err)
	}
}

func TestNew_SQLiteReloadsManualEntries(t *testing.T) {
	dir := t.TempDir()
	env := map[string]string{
		"STORE_BACKEND": "sqlite",
		"SQLITE_PATH":   filepath.Join(dir, "ledger.db"),
	}

	first, err := New(context.Background(), testConfig(t, env), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	created, err := first.Coordinator.AddTransaction(context.Background(), domain.Transaction{
		Date:          time.Now().UTC(),
		Amount:        decimal.RequireFromString("19.99"),
		Description:   "Domain renewal",
		Category:      domain.CategoryOtherSubscriptions,
		Status:        domain.StatusCompleted,
		PaymentOrigin: "Card",
	})
	if err != nil {
		t.Fatalf("AddTransaction failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := New(context.Background(), testConfig(t, env), zerolog.Nop())
	if err != nil {
		t.Fatalf("second New failed: %v", err)
	}
	defer second.Close()

	got, err := second.Coordinator.Transaction(created.ID)
	if err != nil {
		t.Fatalf("stored entry not reloaded: %v", err)
	}
	if got.Source != domain.SourceManual || !got.Amount.Equal(decimal.RequireFromString("19.99")) {
		t.Errorf("reloaded = %+v", got)
	}
}

func TestNew_AllowListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allow.yaml")
	if err := os.WriteFile(path, []byte("counterparties:\n  - Acme\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	a, err := New(context.Background(), testConfig(t, map[string]string{"ALLOWLIST_SOURCE": path}), zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a.Close()

	_, err = New(context.Background(), testConfig(t, map[string]string{"ALLOWLIST_SOURCE": filepath.Join(t.TempDir(), "missing.yaml")}), zerolog.Nop())
	if err == nil {
		t.Error("expected error for missing allow-list file")
	}
}
