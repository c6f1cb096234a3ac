package ledger

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func tx(id string, source domain.Source, amount string) domain.Transaction {
	return domain.Transaction{
		ID:            id,
		Date:          time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString(amount),
		Description:   "entry " + id,
		Category:      domain.CategoryTools,
		Source:        source,
		Status:        domain.StatusCompleted,
		PaymentOrigin: "card",
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestLedger_AddAssignsUniqueIDs(t *testing.T) {
	// generator repeats "dup" once before producing a fresh id
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	l := New(WithIDGenerator(func() string {
		id := ids[i]
		i++
		return id
	}))

	first := l.Add(tx("", domain.SourceManual, "10"))
	second := l.Add(tx("", domain.SourceManual, "20"))

	if first.ID != "dup" || second.ID != "fresh" {
		t.Fatalf("ids = %q, %q; want dup, fresh", first.ID, second.ID)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
}

func TestLedger_AddIgnoresCallerID(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	got := l.Add(tx("caller-chosen", domain.SourceManual, "5"))
	if got.ID != "id-1" {
		t.Errorf("ID = %q, want id-1", got.ID)
	}
	if _, ok := l.Get("caller-chosen"); ok {
		t.Error("caller id must not be stored")
	}
}

func TestLedger_Update(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	stored := l.Add(tx("", domain.SourceManual, "10"))

	stored.Amount = decimal.RequireFromString("99.99")
	if err := l.Update(stored); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, _ := l.Get(stored.ID)
	if !got.Amount.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("Amount = %s, want 99.99", got.Amount)
	}

	err := l.Update(tx("missing", domain.SourceManual, "1"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestLedger_Delete(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	a := l.Add(tx("", domain.SourceManual, "10"))
	b := l.Add(tx("", domain.SourceManual, "20"))

	if !l.Delete(a.ID) {
		t.Fatal("Delete(existing) = false")
	}
	if l.Delete(a.ID) {
		t.Error("Delete(absent) = true")
	}
	if _, ok := l.Get(b.ID); !ok {
		t.Error("remaining entry lost after reindex")
	}
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1", l.Len())
	}
}

func TestLedger_MergeImportBatch_IdempotentAndIsolated(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	manual := l.Add(tx("", domain.SourceManual, "12.50"))
	if err := l.MergeImportBatch(domain.SourceProcessor, []domain.Transaction{tx("ch_1", domain.SourceProcessor, "300")}); err != nil {
		t.Fatal(err)
	}
	before := map[domain.Source][]domain.Transaction{
		domain.SourceManual:    l.BySource(domain.SourceManual),
		domain.SourceProcessor: l.BySource(domain.SourceProcessor),
	}

	batch := []domain.Transaction{
		tx("bank_1", domain.SourceBank, "45"),
		tx("bank_2", domain.SourceBank, "19.99"),
	}

	for i := 0; i < 2; i++ {
		if err := l.MergeImportBatch(domain.SourceBank, batch); err != nil {
			t.Fatalf("merge %d failed: %v", i, err)
		}
	}

	if diff := cmp.Diff(batch, l.BySource(domain.SourceBank)); diff != "" {
		t.Errorf("bank entries mismatch (-want +got):\n%s", diff)
	}
	for source, want := range before {
		if diff := cmp.Diff(want, l.BySource(source)); diff != "" {
			t.Errorf("%s entries changed (-want +got):\n%s", source, diff)
		}
	}
	if got, _ := l.Get(manual.ID); got.Description != manual.Description {
		t.Error("manual entry modified")
	}
}

func TestLedger_MergeImportBatch_ReplacesPreviousBatch(t *testing.T) {
	l := New()
	first := []domain.Transaction{tx("a", domain.SourceBank, "1"), tx("b", domain.SourceBank, "2")}
	second := []domain.Transaction{tx("c", domain.SourceBank, "3")}

	if err := l.MergeImportBatch(domain.SourceBank, first); err != nil {
		t.Fatal(err)
	}
	if err := l.MergeImportBatch(domain.SourceBank, second); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(second, l.BySource(domain.SourceBank)); diff != "" {
		t.Errorf("bank entries mismatch (-want +got):\n%s", diff)
	}
	if _, ok := l.Get("a"); ok {
		t.Error("stale entry a still indexed")
	}
}

func TestLedger_MergeImportBatch_ForcesSourceTag(t *testing.T) {
	l := New()
	rec := tx("x", domain.SourceManual, "1")
	if err := l.MergeImportBatch(domain.SourceBank, []domain.Transaction{rec}); err != nil {
		t.Fatal(err)
	}
	got, _ := l.Get("x")
	if got.Source != domain.SourceBank {
		t.Errorf("Source = %s, want %s", got.Source, domain.SourceBank)
	}
}

func TestLedger_MergeImportBatch_RejectsCollisions(t *testing.T) {
	tests := []struct {
		name  string
		batch []domain.Transaction
	}{
		{name: "collides with other source", batch: []domain.Transaction{tx("keep", domain.SourceBank, "1")}},
		{name: "repeats id within batch", batch: []domain.Transaction{tx("n", domain.SourceBank, "1"), tx("n", domain.SourceBank, "2")}},
		{name: "missing id", batch: []domain.Transaction{tx("", domain.SourceBank, "1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New()
			if err := l.Insert(tx("keep", domain.SourceManual, "5")); err != nil {
				t.Fatal(err)
			}
			if err := l.MergeImportBatch(domain.SourceBank, []domain.Transaction{tx("old", domain.SourceBank, "9")}); err != nil {
				t.Fatal(err)
			}
			before := l.Snapshot()

			if err := l.MergeImportBatch(domain.SourceBank, tt.batch); err == nil {
				t.Fatal("expected error")
			}
			if diff := cmp.Diff(before, l.Snapshot()); diff != "" {
				t.Errorf("ledger changed on rejected batch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLedger_OnChangeFiresOnEveryMutation(t *testing.T) {
	calls := 0
	l := New(WithIDGenerator(sequentialIDs()), WithOnChange(func() { calls++ }))

	added := l.Add(tx("", domain.SourceManual, "1"))
	_ = l.Update(added)
	_ = l.MergeImportBatch(domain.SourceBank, nil)
	l.Delete(added.ID)

	if calls != 4 {
		t.Errorf("onChange called %d times, want 4", calls)
	}

	l.Delete("absent")
	_ = l.Update(tx("absent", domain.SourceManual, "1"))
	if calls != 4 {
		t.Errorf("no-op mutations fired onChange: %d calls", calls)
	}
}

func TestLedger_SnapshotIsACopy(t *testing.T) {
	l := New(WithIDGenerator(sequentialIDs()))
	l.Add(tx("", domain.SourceManual, "1"))

	snap := l.Snapshot()
	snap[0].Description = "mutated"

	got, _ := l.Get("id-1")
	if got.Description == "mutated" {
		t.Error("Snapshot exposed internal storage")
	}
}
