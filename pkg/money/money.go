// Package money renders XOF amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Currency = "XOF"
	Symbol   = "FCFA"
)

// Format renders an amount as "15 000,50 FCFA". The fractional part is
// omitted when it is zero.
func Format(amount decimal.Decimal) string {
	return FormatNumber(amount) + " " + Symbol
}

// FormatNumber groups thousands with a space and uses a decimal comma.
func FormatNumber(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	negative := rounded.IsNegative()
	if negative {
		rounded = rounded.Neg()
	}

	intPart := rounded.Truncate(0)
	frac := rounded.Sub(intPart)

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	sb.WriteString(group(intPart.String()))
	if !frac.IsZero() {
		sb.WriteByte(',')
		sb.WriteString(rounded.StringFixed(2)[len(intPart.String())+1:])
	}
	return sb.String()
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var sb strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		sb.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(digits[i : i+3])
	}
	return sb.String()
}
