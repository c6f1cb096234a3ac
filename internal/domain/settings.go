package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Country is the tax jurisdiction tag.
type Country string

const (
	CountryFR Country = "FR"
	CountryEU Country = "EU"
)

// Valid reports whether c is one of the supported jurisdictions.
func (c Country) Valid() bool {
	return c == CountryFR || c == CountryEU
}

// ParseCountry validates a jurisdiction tag.
func ParseCountry(s string) (Country, error) {
	c := Country(s)
	if !c.Valid() {
		return "", &ValidationError{Field: "country", Reason: fmt.Sprintf("unsupported jurisdiction %q", s)}
	}
	return c, nil
}

// TaxSettings holds the four flat rates applied to gross income.
// Rates are fractions in [0,1] (0.231 means 23.10%).
type TaxSettings struct {
	ServicesTaxRate       decimal.Decimal `json:"services_tax_rate"`       // BNC
	IncomeTaxRate         decimal.Decimal `json:"income_tax_rate"`         // versement libératoire
	MandatoryTrainingRate decimal.Decimal `json:"mandatory_training_rate"` // formation professionnelle
	VATRate               decimal.Decimal `json:"vat_rate"`                // TVA
	Country               Country         `json:"country"`
}

// DefaultTaxSettings returns the micro-entrepreneur defaults for a jurisdiction.
func DefaultTaxSettings(country Country) TaxSettings {
	if !country.Valid() {
		country = CountryFR
	}
	return TaxSettings{
		ServicesTaxRate:       decimal.RequireFromString("0.231"),
		IncomeTaxRate:         decimal.RequireFromString("0.022"),
		MandatoryTrainingRate: decimal.RequireFromString("0.001"),
		VATRate:               decimal.RequireFromString("0.20"),
		Country:               country,
	}
}

// Validate checks every rate lies in [0,1] and the jurisdiction is known.
func (s TaxSettings) Validate() error {
	rates := []struct {
		field string
		rate  decimal.Decimal
	}{
		{"services_tax_rate", s.ServicesTaxRate},
		{"income_tax_rate", s.IncomeTaxRate},
		{"mandatory_training_rate", s.MandatoryTrainingRate},
		{"vat_rate", s.VATRate},
	}
	for _, r := range rates {
		if r.rate.IsNegative() || r.rate.GreaterThan(decimal.NewFromInt(1)) {
			return &ValidationError{Field: r.field, Reason: "rate must be between 0 and 1"}
		}
	}
	if !s.Country.Valid() {
		return &ValidationError{Field: "country", Reason: fmt.Sprintf("unsupported jurisdiction %q", s.Country)}
	}
	return nil
}

// DateRange is an inclusive [Start, End] interval.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

// MonthRange returns the calendar month containing t, from the first instant
// of its first day to the last nanosecond of its last day.
func MonthRange(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return DateRange{Start: start, End: end}
}

// Contains reports whether t lies within the range, both ends inclusive.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Validate rejects ranges whose end precedes their start.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return &ValidationError{Field: "date_range", Reason: "start and end are required"}
	}
	if r.End.Before(r.Start) {
		return &ValidationError{Field: "date_range", Reason: "end date must not precede start date"}
	}
	return nil
}

// AccountingSummary is derived from the ledger, the date range and the tax
// settings. It is never stored.
type AccountingSummary struct {
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
	ServicesTax       decimal.Decimal `json:"services_tax"`
	IncomeTax         decimal.Decimal `json:"income_tax"`
	MandatoryTraining decimal.Decimal `json:"mandatory_training"`
	TotalVAT          decimal.Decimal `json:"total_vat"`
	NetIncome         decimal.Decimal `json:"net_income"`
	PendingIncome     decimal.Decimal `json:"pending_income"`
}
