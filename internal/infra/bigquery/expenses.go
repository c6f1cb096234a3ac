package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/shopspring/decimal"
)

// ExpenseRow is a manual expense in the expenses table.
type ExpenseRow struct {
	ExpenseID string `bigquery:"expense_id"` // REQUIRED

	ExpenseDate civil.Date `bigquery:"expense_date"` // REQUIRED

	Amount *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC

	Description   string `bigquery:"description"`    // REQUIRED
	Category      string `bigquery:"category"`       // REQUIRED
	Status        string `bigquery:"status"`         // REQUIRED
	PaymentOrigin string `bigquery:"payment_origin"` // REQUIRED

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// toRow maps a ledger entry to a table row. Only the calendar date of
// tx.Date is kept.
func toRow(tx domain.Transaction, now time.Time) *ExpenseRow {
	return &ExpenseRow{
		ExpenseID:     tx.ID,
		ExpenseDate:   civil.DateOf(tx.Date),
		Amount:        tx.Amount.Rat(),
		Description:   tx.Description,
		Category:      string(tx.Category),
		Status:        string(tx.Status),
		PaymentOrigin: tx.PaymentOrigin,
		CreatedTS:     now,
	}
}

// toTransaction maps a table row back to a manual ledger entry dated at
// midnight UTC.
func toTransaction(row *ExpenseRow) (domain.Transaction, error) {
	if row.Amount == nil {
		return domain.Transaction{}, fmt.Errorf("toTransaction: %s: amount is null", row.ExpenseID)
	}
	amount, err := ratToDecimal(row.Amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("toTransaction: %s: %w", row.ExpenseID, err)
	}
	return domain.Transaction{
		ID:            row.ExpenseID,
		Date:          row.ExpenseDate.In(time.UTC),
		Amount:        amount,
		Description:   row.Description,
		Category:      domain.Category(row.Category),
		Source:        domain.SourceManual,
		Status:        domain.Status(row.Status),
		PaymentOrigin: row.PaymentOrigin,
	}, nil
}

// NUMERIC has a scale of 9.
func ratToDecimal(r *big.Rat) (decimal.Decimal, error) {
	return decimal.NewFromString(r.FloatString(9))
}
