// Package validator wraps go-playground/validator with the rules used for
// manually entered expenses and tax settings.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var Validate *validator.Validate

var nonBlank = regexp.MustCompile(`\S`)

func init() {
	Validate = validator.New()

	// at least one non-whitespace character
	_ = Validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return nonBlank.MatchString(fl.Field().String())
	})

	_ = Validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.Category(fl.Field().String()).Valid()
	})

	_ = Validate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(strings.TrimSpace(fl.Field().String()))
		return err == nil
	})
}

// ExpenseInput is the shape of a manual expense as submitted by a form or the
// API: dates as YYYY-MM-DD and amounts as decimal strings.
type ExpenseInput struct {
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	Amount        string `json:"amount" validate:"required,decimal"`
	Description   string `json:"description" validate:"required,notblank"`
	Category      string `json:"category" validate:"required,category"`
	PaymentOrigin string `json:"payment_origin" validate:"required,notblank"`
}

// ToTransaction validates the input and converts it into a manual, completed
// ledger entry without an ID.
func (in ExpenseInput) ToTransaction(loc *time.Location) (domain.Transaction, error) {
	if err := Struct(in); err != nil {
		return domain.Transaction{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	date, err := time.ParseInLocation("2006-01-02", in.Date, loc)
	if err != nil {
		return domain.Transaction{}, &domain.ValidationError{Field: "date", Reason: err.Error()}
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	if err != nil {
		return domain.Transaction{}, &domain.ValidationError{Field: "amount", Reason: err.Error()}
	}
	tx := domain.Transaction{
		Date:          date,
		Amount:        amount,
		Description:   strings.TrimSpace(in.Description),
		Category:      domain.Category(in.Category),
		Source:        domain.SourceManual,
		Status:        domain.StatusCompleted,
		PaymentOrigin: strings.TrimSpace(in.PaymentOrigin),
	}
	return tx, Transaction(tx)
}

type transactionView struct {
	Amount        float64 `validate:"gte=0"`
	Description   string  `validate:"required,notblank"`
	Category      string  `validate:"required,category"`
	Source        string  `validate:"required,oneof=stripe mercury manual"`
	Status        string  `validate:"required,oneof=pending completed"`
	PaymentOrigin string  `validate:"required,notblank"`
}

// Transaction checks a ledger entry before it is added or updated.
func Transaction(tx domain.Transaction) error {
	if tx.Date.IsZero() {
		return &domain.ValidationError{Field: "date", Reason: "is required"}
	}
	if tx.Amount.IsNegative() {
		return &domain.ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	return Struct(transactionView{
		Amount:        tx.Amount.InexactFloat64(),
		Description:   tx.Description,
		Category:      string(tx.Category),
		Source:        string(tx.Source),
		Status:        string(tx.Status),
		PaymentOrigin: tx.PaymentOrigin,
	})
}

// Struct runs the struct-tag rules and converts the first failure into a
// domain.ValidationError.
func Struct(v interface{}) error {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domain.ValidationError{
			Field:  toSnake(fe.Field()),
			Reason: fmt.Sprintf("failed %q rule", fe.Tag()),
		}
	}
	return &domain.ValidationError{Reason: err.Error()}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
