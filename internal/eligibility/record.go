package eligibility

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawTransaction is a bank feed record as returned by the provider API.
// Amount is signed: outflows are negative.
type RawTransaction struct {
	ID               string `json:"id"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
	CounterpartyName string `json:"counterpartyName,omitempty"`
	CounterpartyID   string `json:"counterpartyId,omitempty"`
	BankDescription  string `json:"bankDescription,omitempty"`
	ExternalMemo     string `json:"externalMemo,omitempty"`
	Note             string `json:"note,omitempty"`
	PostedAt         string `json:"postedAt,omitempty"`
	CreatedAt        string `json:"createdAt"`
}

// SignedAmount parses the provider's decimal amount string.
func (r RawTransaction) SignedAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return decimal.Zero, fmt.Errorf("SignedAmount: %q: %w", r.Amount, err)
	}
	return d, nil
}

// Counterparty returns the first non-empty of name, id and bank description.
func (r RawTransaction) Counterparty() string {
	for _, c := range []string{r.CounterpartyName, r.CounterpartyID, r.BankDescription} {
		if c != "" {
			return c
		}
	}
	return ""
}

// EffectiveDate is the posted date when present, otherwise the created date.
func (r RawTransaction) EffectiveDate() (time.Time, error) {
	raw := r.PostedAt
	if raw == "" {
		raw = r.CreatedAt
	}
	return parseTimestamp(raw)
}

// Description picks the most informative free-text label.
func (r RawTransaction) Description() string {
	for _, d := range []string{r.ExternalMemo, r.BankDescription, r.Note} {
		if d != "" {
			return d
		}
	}
	return "No description"
}

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("parseTimestamp: empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parseTimestamp: unrecognized timestamp %q", raw)
}
