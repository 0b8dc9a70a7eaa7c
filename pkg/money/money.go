// Package money formats integer cent amounts for display.
package money

import (
	"strconv"
	"strings"
)

// Format describes how an amount is rendered.
type Format struct {
	Symbol    string
	Thousands string
	Decimal   string
}

// BRL is the default clinic currency format, e.g. "R$ 1.234,56".
var BRL = Format{Symbol: "R$", Thousands: ".", Decimal: ","}

// FormatCents renders cents using BRL.
func FormatCents(cents int64) string {
	return BRL.Cents(cents)
}

// Cents renders an amount of cents with integer arithmetic only.
func (f Format) Cents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	units, frac := cents/100, cents%100

	digits := strconv.FormatInt(units, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if f.Symbol != "" {
		b.WriteString(f.Symbol)
		b.WriteByte(' ')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteString(f.Thousands)
		}
		b.WriteRune(r)
	}
	b.WriteString(f.Decimal)
	if frac < 10 {
		b.WriteByte('0')
	}
	b.WriteString(strconv.FormatInt(frac, 10))
	return b.String()
}
