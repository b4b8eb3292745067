package models

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify lower-cases value, strips accents and joins words with dashes.
func Slugify(value string) string {
	plain, _, err := transform.String(accentStripper, value)
	if err != nil {
		plain = value
	}
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(plain) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			sb.WriteRune(r)
			dash = false
		case sb.Len() > 0 && !dash:
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}

// All lists every model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Team{},
		&Product{},
		&ProductSizeStock{},
		&ProductImage{},
		&Review{},
		&CustomizationOption{},
		&Cart{},
		&CartItem{},
		&CartItemCustomization{},
		&Address{},
		&Order{},
		&OrderItem{},
		&OrderItemCustomization{},
		&Payment{},
		&PaymentLog{},
	}
}
