// Package summary derives tax liabilities and net income from the ledger.
// Everything here is pure: no I/O, no clock, no shared state.
package summary

import (
	"sort"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/shopspring/decimal"
)

// Compute derives the accounting summary for rng.
//
// Income is the externally supplied gross sales figure; it is not derived from
// ledger entries. Every ledger entry dated within rng (both ends inclusive)
// counts as an expense regardless of category or status. Tax components are
// flat rates on gross income, not on income minus expenses.
func Compute(txs []domain.Transaction, rng domain.DateRange, settings domain.TaxSettings, income decimal.Decimal) domain.AccountingSummary {
	expenses := decimal.Zero
	for _, tx := range txs {
		if rng.Contains(tx.Date) {
			expenses = expenses.Add(tx.Amount)
		}
	}

	s := domain.AccountingSummary{
		TotalIncome:       income,
		TotalExpenses:     expenses,
		ServicesTax:       income.Mul(settings.ServicesTaxRate),
		IncomeTax:         income.Mul(settings.IncomeTaxRate),
		MandatoryTraining: income.Mul(settings.MandatoryTrainingRate),
		TotalVAT:          income.Mul(settings.VATRate),
		PendingIncome:     decimal.Zero,
	}
	s.NetIncome = income.
		Sub(s.TotalExpenses).
		Sub(s.ServicesTax).
		Sub(s.IncomeTax).
		Sub(s.MandatoryTraining).
		Sub(s.TotalVAT)
	return s
}

// TotalTaxes is the sum of the four tax components.
func TotalTaxes(s domain.AccountingSummary) decimal.Decimal {
	return s.ServicesTax.Add(s.IncomeTax).Add(s.MandatoryTraining).Add(s.TotalVAT)
}

// Group is one line of an expense breakdown.
type Group struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// Breakdown splits the in-range expenses by category and by payment origin.
type Breakdown struct {
	ByCategory      []Group `json:"by_category"`
	ByPaymentOrigin []Group `json:"by_payment_origin"`
}

// Snapshot is a consistent view of the figures for one date range.
type Snapshot struct {
	DateRange domain.DateRange         `json:"date_range"`
	Settings  domain.TaxSettings       `json:"tax_settings"`
	Summary   domain.AccountingSummary `json:"summary"`
	Breakdown Breakdown                `json:"breakdown"`
}

// BreakdownFor groups in-range entries. Groups are ordered by descending total,
// ties broken by key so the output is deterministic.
func BreakdownFor(txs []domain.Transaction, rng domain.DateRange) Breakdown {
	byCategory := make(map[string]*Group)
	byOrigin := make(map[string]*Group)

	for _, tx := range txs {
		if !rng.Contains(tx.Date) {
			continue
		}
		accumulate(byCategory, string(tx.Category), tx.Amount)
		accumulate(byOrigin, tx.PaymentOrigin, tx.Amount)
	}

	return Breakdown{
		ByCategory:      sortedGroups(byCategory),
		ByPaymentOrigin: sortedGroups(byOrigin),
	}
}

func accumulate(groups map[string]*Group, key string, amount decimal.Decimal) {
	g, ok := groups[key]
	if !ok {
		g = &Group{Key: key, Total: decimal.Zero}
		groups[key] = g
	}
	g.Total = g.Total.Add(amount)
	g.Count++
}

func sortedGroups(groups map[string]*Group) []Group {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}
