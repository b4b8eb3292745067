// Package pricing holds the customization pricing rule and line totals.
package pricing

import (
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// MaxCustomTextLength bounds the free text printed on a jersey.
const MaxCustomTextLength = 50

// CustomizationPrice applies the customization rule. Name customizations are
// charged per character of text (spaces included); every other type is a flat
// fee. Quantities below one count as one.
func CustomizationPrice(kind enums.CustomizationType, unit decimal.Decimal, text string, quantity int) decimal.Decimal {
	if quantity < 1 {
		quantity = 1
	}
	price := unit.Mul(decimal.NewFromInt(int64(quantity)))
	if kind == enums.CustomizationTypeName {
		price = price.Mul(decimal.NewFromInt(int64(utf8.RuneCountInString(text))))
	}
	return price
}

// LineTotal returns unit x quantity plus the sum of the customization prices.
func LineTotal(unit decimal.Decimal, quantity int, customizationPrices ...decimal.Decimal) decimal.Decimal {
	total := unit.Mul(decimal.NewFromInt(int64(quantity)))
	for _, p := range customizationPrices {
		total = total.Add(p)
	}
	return total
}

// NameText joins a player name and number the way it is printed.
func NameText(name, number string) string {
	return strings.TrimSpace(name + " " + number)
}
