// Package format renders money for display in the configured currency and
// locale. Presentation only: amounts are never parsed back.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// languages that write the symbol after the amount
var symbolAfter = map[string]bool{
	"fr": true, "de": true, "es": true, "it": true, "pt": true, "nl": true,
}

// Money formats decimal amounts with two fraction digits.
type Money struct {
	printer *message.Printer
	unit    currency.Unit
	symbol  string
	suffix  bool
}

// NewMoney builds a formatter for an ISO 4217 code and a BCP 47 locale.
func NewMoney(code, locale string) (*Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("NewMoney: currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("NewMoney: locale %q: %w", locale, err)
	}

	printer := message.NewPrinter(tag)
	base, _ := tag.Base()
	return &Money{
		printer: printer,
		unit:    unit,
		symbol:  printer.Sprint(currency.Symbol(unit)),
		suffix:  symbolAfter[base.String()],
	}, nil
}

// Format renders d rounded half away from zero to cents, e.g. "4 960,00 €"
// for EUR in fr-FR.
func (m *Money) Format(d decimal.Decimal) string {
	number := m.printer.Sprintf("%.2f", d.Round(2).InexactFloat64())
	symbol := strings.TrimSpace(m.symbol)
	if symbol == "" {
		symbol = m.unit.String()
	}
	if m.suffix {
		return number + " " + symbol
	}
	return symbol + number
}

// Code returns the ISO currency code.
func (m *Money) Code() string {
	return m.unit.String()
}
