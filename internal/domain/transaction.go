package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the closed set of expense categories a ledger entry can carry.
type Category string

const (
	CategoryTools              Category = "tools"
	CategoryOtherSubscriptions Category = "other subscriptions"
	CategoryFreelance          Category = "freelance"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryTools, CategoryOtherSubscriptions, CategoryFreelance}

// Valid reports whether c belongs to the closed category set.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Source tags the provenance of a ledger entry.
type Source string

const (
	// SourceProcessor marks records imported from the payments processor.
	SourceProcessor Source = "stripe"
	// SourceBank marks records imported from the bank feed.
	SourceBank Source = "mercury"
	// SourceManual marks records entered by the user.
	SourceManual Source = "manual"
)

// Valid reports whether s is a known source tag.
func (s Source) Valid() bool {
	switch s {
	case SourceProcessor, SourceBank, SourceManual:
		return true
	}
	return false
}

// Imported reports whether entries with this source come from an upstream provider.
func (s Source) Imported() bool {
	return s == SourceProcessor || s == SourceBank
}

// Status is the settlement state of a ledger entry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusCompleted
}

// Transaction is a single ledger entry. Amount is always non-negative and
// expressed in major currency units (euros, not cents).
type Transaction struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Category      Category        `json:"category"`
	Source        Source          `json:"source"`
	Status        Status          `json:"status"`
	PaymentOrigin string          `json:"payment_origin"`
}

// TransactionPatch carries the fields of a partial update. Nil fields are left
// untouched.
type TransactionPatch struct {
	Date          *time.Time       `json:"date,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Category      *Category        `json:"category,omitempty"`
	Status        *Status          `json:"status,omitempty"`
	PaymentOrigin *string          `json:"payment_origin,omitempty"`
}

// Apply returns a copy of tx with the non-nil patch fields applied. The source
// tag is never patchable.
func (p TransactionPatch) Apply(tx Transaction) Transaction {
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Status != nil {
		tx.Status = *p.Status
	}
	if p.PaymentOrigin != nil {
		tx.PaymentOrigin = *p.PaymentOrigin
	}
	return tx
}

// PatchFrom builds a patch that overwrites every patchable field with the
// values of tx.
func PatchFrom(tx Transaction) TransactionPatch {
	return TransactionPatch{
		Date:          &tx.Date,
		Amount:        &tx.Amount,
		Description:   &tx.Description,
		Category:      &tx.Category,
		Status:        &tx.Status,
		PaymentOrigin: &tx.PaymentOrigin,
	}
}
