package bigquery

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestRowConversion(t *testing.T) {
	tx := domain.Transaction{
		ID:            "exp-1",
		Date:          time.Date(2024, 6, 5, 17, 45, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("19.99"),
		Description:   "Figma seat",
		Category:      domain.CategoryOtherSubscriptions,
		Source:        domain.SourceManual,
		Status:        domain.StatusCompleted,
		PaymentOrigin: "Amex",
	}

	row := toRow(tx, time.Date(2024, 6, 5, 18, 0, 0, 0, time.UTC))
	if row.ExpenseDate != (civil.Date{Year: 2024, Month: time.June, Day: 5}) {
		t.Errorf("ExpenseDate = %v", row.ExpenseDate)
	}
	if row.Amount.Cmp(big.NewRat(1999, 100)) != 0 {
		t.Errorf("Amount = %s, want 19.99", row.Amount.FloatString(2))
	}

	got, err := toTransaction(row)
	if err != nil {
		t.Fatalf("toTransaction failed: %v", err)
	}
	want := tx
	want.Date = time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToTransaction_NullAmount(t *testing.T) {
	if _, err := toTransaction(&ExpenseRow{ExpenseID: "x"}); err == nil {
		t.Error("expected error for null amount")
	}
}

func TestPatchAssignments(t *testing.T) {
	desc := "renamed"
	amount := decimal.RequireFromString("3.50")
	status := domain.StatusPending

	sets, params := patchAssignments(domain.TransactionPatch{
		Amount:      &amount,
		Description: &desc,
		Status:      &status,
	})

	wantSets := []string{"amount = @amount", "description = @description", "status = @status"}
	if diff := cmp.Diff(wantSets, sets); diff != "" {
		t.Errorf("assignments mismatch (-want +got):\n%s", diff)
	}
	if len(params) != 3 || params[1].Value != "renamed" || params[2].Value != "pending" {
		t.Errorf("params = %+v", params)
	}

	if sets, _ := patchAssignments(domain.TransactionPatch{}); len(sets) != 0 {
		t.Errorf("empty patch produced %v", sets)
	}
}

func TestTableFQN(t *testing.T) {
	got := Table{ProjectID: "proj", DatasetID: "ledger"}.fqn()
	if !strings.Contains(got, "proj.ledger.expenses") {
		t.Errorf("fqn = %s", got)
	}
}

func TestUpdateStatement(t *testing.T) {
	table := Table{ProjectID: "proj", DatasetID: "ledger"}
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	desc := "renamed"

	tests := []struct {
		name      string
		patch     domain.TransactionPatch
		wantSets  []string
		wantNames []string
	}{
		{
			name:      "fields",
			patch:     domain.TransactionPatch{Description: &desc},
			wantSets:  []string{"description = @description", "updated_ts = @updated_ts"},
			wantNames: []string{"description", "updated_ts", "expense_id"},
		},
		{
			// a missing row must still come back as zero affected rows
			name:      "empty patch",
			patch:     domain.TransactionPatch{},
			wantSets:  []string{"updated_ts = @updated_ts"},
			wantNames: []string{"updated_ts", "expense_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params := updateStatement(table, "exp-1", tt.patch, now)

			if !strings.Contains(sql, "UPDATE "+table.fqn()) || !strings.Contains(sql, "WHERE expense_id = @expense_id") {
				t.Errorf("sql = %s", sql)
			}
			for _, set := range tt.wantSets {
				if !strings.Contains(sql, set) {
					t.Errorf("sql missing %q:\n%s", set, sql)
				}
			}

			var names []string
			for _, p := range params {
				names = append(names, p.Name)
			}
			if diff := cmp.Diff(tt.wantNames, names); diff != "" {
				t.Errorf("parameter names mismatch (-want +got):\n%s", diff)
			}
			if last := params[len(params)-1]; last.Value != "exp-1" {
				t.Errorf("expense_id = %v", last.Value)
			}
		})
	}
}
