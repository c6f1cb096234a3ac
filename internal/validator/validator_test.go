package validator

import (
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/shopspring/decimal"
)

func TestExpenseInput_ToTransaction(t *testing.T) {
	valid := ExpenseInput{
		Date:          "2024-03-05",
		Amount:        "12.50",
		Description:   "Canva Pro",
		Category:      "other subscriptions",
		PaymentOrigin: "Mercury ONIL",
	}

	tests := []struct {
		name      string
		mutate    func(in *ExpenseInput)
		wantErr   bool
		wantField string
	}{
		{name: "valid input", mutate: func(in *ExpenseInput) {}},
		{name: "missing date", mutate: func(in *ExpenseInput) { in.Date = "" }, wantErr: true, wantField: "date"},
		{name: "bad date format", mutate: func(in *ExpenseInput) { in.Date = "05/03/2024" }, wantErr: true, wantField: "date"},
		{name: "non numeric amount", mutate: func(in *ExpenseInput) { in.Amount = "twelve" }, wantErr: true, wantField: "amount"},
		{name: "negative amount", mutate: func(in *ExpenseInput) { in.Amount = "-3" }, wantErr: true, wantField: "amount"},
		{name: "blank description", mutate: func(in *ExpenseInput) { in.Description = "   " }, wantErr: true, wantField: "description"},
		{name: "unknown category", mutate: func(in *ExpenseInput) { in.Category = "travel" }, wantErr: true, wantField: "category"},
		{name: "missing payment origin", mutate: func(in *ExpenseInput) { in.PaymentOrigin = "" }, wantErr: true, wantField: "payment_origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			tx, err := in.ToTransaction(time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToTransaction() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				ve, ok := err.(*domain.ValidationError)
				if !ok {
					t.Fatalf("expected *domain.ValidationError, got %T", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("field = %q, want %q", ve.Field, tt.wantField)
				}
				return
			}
			if tx.Source != domain.SourceManual || tx.Status != domain.StatusCompleted {
				t.Errorf("unexpected source/status: %s/%s", tx.Source, tx.Status)
			}
			if !tx.Amount.Equal(decimal.RequireFromString("12.5")) {
				t.Errorf("amount = %s, want 12.5", tx.Amount)
			}
			if tx.Date.Day() != 5 || tx.Date.Month() != time.March {
				t.Errorf("date = %v", tx.Date)
			}
		})
	}
}

func TestTransaction_RejectsUnknownSource(t *testing.T) {
	tx := domain.Transaction{
		Date:          time.Now(),
		Amount:        decimal.NewFromInt(1),
		Description:   "x",
		Category:      domain.CategoryTools,
		Source:        "paypal",
		Status:        domain.StatusCompleted,
		PaymentOrigin: "card",
	}
	if err := Transaction(tx); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"PaymentOrigin": "payment_origin",
		"Date":          "date",
		"":              "",
	}
	for in, want := range tests {
		if got := toSnake(in); got != want {
			t.Errorf("toSnake(%q) = %q, want %q", in, got, want)
		}
	}
}
