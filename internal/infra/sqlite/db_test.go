package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewDatabase failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func expense(day int, amount string) domain.Transaction {
	return domain.Transaction{
		Date:          time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString(amount),
		Description:   "Notion Plus",
		Category:      domain.CategoryOtherSubscriptions,
		Source:        domain.SourceManual,
		Status:        domain.StatusCompleted,
		PaymentOrigin: "Amex",
	}
}

func TestDatabase_CreateAndList(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	late, err := db.Create(ctx, expense(20, "10.50"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	early, err := db.Create(ctx, expense(3, "4.25"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if late.ID == "" || late.ID == early.ID {
		t.Fatalf("ids = %q, %q; want distinct non-empty", late.ID, early.ID)
	}

	all, err := db.List(ctx, nil)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != early.ID || all[1].ID != late.ID {
		t.Fatalf("List() = %+v, want early then late", all)
	}
	if !all[1].Amount.Equal(decimal.RequireFromString("10.50")) {
		t.Errorf("Amount = %s, want 10.50", all[1].Amount)
	}
	if all[0].Source != domain.SourceManual {
		t.Errorf("Source = %s, want manual", all[0].Source)
	}

	rng := domain.DateRange{
		Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
	}
	inRange, err := db.List(ctx, &rng)
	if err != nil {
		t.Fatalf("List(range) failed: %v", err)
	}
	if len(inRange) != 1 || inRange[0].ID != early.ID {
		t.Errorf("List(range) = %+v, want only the early entry", inRange)
	}
}

func TestDatabase_Update(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	stored, err := db.Create(ctx, expense(5, "1"))
	if err != nil {
		t.Fatal(err)
	}

	desc := "Notion Team"
	amount := decimal.RequireFromString("8")
	if err := db.Update(ctx, stored.ID, domain.TransactionPatch{Description: &desc, Amount: &amount}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	all, err := db.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if all[0].Description != desc || !all[0].Amount.Equal(amount) {
		t.Errorf("updated = %+v", all[0])
	}

	if err := db.Update(ctx, "missing", domain.TransactionPatch{Description: &desc}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
	if err := db.Update(ctx, "missing", domain.TransactionPatch{}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestDatabase_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)
	stored, err := db.Create(ctx, expense(5, "1"))
	if err != nil {
		t.Fatal(err)
	}

	if err := db.Delete(ctx, stored.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := db.Delete(ctx, stored.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}

	all, err := db.List(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("List() after delete = %+v", all)
	}
}
