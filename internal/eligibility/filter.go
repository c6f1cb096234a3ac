// Package eligibility decides which bank feed records are qualifying business
// expenses. A record enters the ledger only when it is a finalized outflow to
// an allow-listed vendor within the recent window.
package eligibility

import (
	"strings"
	"time"
)

// DefaultMaxAge is how old (by effective date) a record may be and still qualify.
const DefaultMaxAge = 30 * 24 * time.Hour

// sentStatus is the provider status of a finalized outgoing transfer.
const sentStatus = "sent"

// Filter applies the eligibility rules. It holds no mutable state; the clock
// is injected so evaluation is deterministic in tests.
type Filter struct {
	allow  *AllowList
	clock  func() time.Time
	maxAge time.Duration
}

// NewFilter builds a filter over the given allow-list. A nil clock uses time.Now.
func NewFilter(allow *AllowList, clock func() time.Time) *Filter {
	if allow == nil {
		allow = DefaultAllowList()
	}
	if clock == nil {
		clock = time.Now
	}
	return &Filter{allow: allow, clock: clock, maxAge: DefaultMaxAge}
}

// IsEligible reports whether rec qualifies as a business expense.
func (f *Filter) IsEligible(rec RawTransaction) bool {
	amount, err := rec.SignedAmount()
	if err != nil || !amount.IsNegative() {
		return false
	}

	if !strings.EqualFold(strings.TrimSpace(rec.Status), sentStatus) {
		return false
	}

	if !f.allow.Matches(rec.Counterparty()) {
		return false
	}

	date, err := rec.EffectiveDate()
	if err != nil {
		return false
	}
	return f.clock().Sub(date) <= f.maxAge
}

// Apply returns the eligible records, preserving input order.
func (f *Filter) Apply(recs []RawTransaction) []RawTransaction {
	out := make([]RawTransaction, 0, len(recs))
	for _, rec := range recs {
		if f.IsEligible(rec) {
			out = append(out, rec)
		}
	}
	return out
}
