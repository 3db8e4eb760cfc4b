package view

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money formats amounts for display using the workshop currency.
type Money struct {
	printer *message.Printer
	symbol  string
}

// NewMoney builds a formatter for the ISO 4217 currency code.
func NewMoney(code string) (Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Money{}, err
	}
	printer := message.NewPrinter(language.English)
	symbol := strings.TrimSpace(printer.Sprint(currency.NarrowSymbol(unit)))
	if symbol == "" {
		symbol = unit.String() + " "
	}
	return Money{printer: printer, symbol: symbol}, nil
}

// Format renders 1234.5 as "$1,234.50" and whole amounts without decimals.
func (m Money) Format(amount float64) string {
	p := m.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if amount == math.Trunc(amount) {
		return sign + m.symbol + p.Sprintf("%d", int64(amount))
	}
	return sign + m.symbol + p.Sprintf("%.2f", amount)
}
