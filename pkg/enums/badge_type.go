package enums

import (
	"fmt"
	"strings"
	"unicode"
)

// BadgeType names the league badge attached to a badge customization.
type BadgeType string

const (
	BadgeTypeLiga       BadgeType = "liga"
	BadgeTypeUEFA       BadgeType = "uefa"
	BadgeTypeChampions  BadgeType = "champions"
	BadgeTypeEuropa     BadgeType = "europa"
	BadgeTypePremier    BadgeType = "premier"
	BadgeTypeBundesliga BadgeType = "bundesliga"
	BadgeTypeSerieA     BadgeType = "serie_a"
	BadgeTypeLigue1     BadgeType = "ligue_1"
)

var validBadgeTypes = []BadgeType{
	BadgeTypeLiga,
	BadgeTypeUEFA,
	BadgeTypeChampions,
	BadgeTypeEuropa,
	BadgeTypePremier,
	BadgeTypeBundesliga,
	BadgeTypeSerieA,
	BadgeTypeLigue1,
}

// String implements fmt.Stringer.
func (b BadgeType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BadgeType.
func (b BadgeType) IsValid() bool {
	for _, candidate := range validBadgeTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBadgeType converts raw input into a BadgeType.
func ParseBadgeType(value string) (BadgeType, error) {
	for _, candidate := range validBadgeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid badge type %q", value)
}

var badgeTypeLabels = map[BadgeType]string{
	BadgeTypeLiga:       "Liga",
	BadgeTypeUEFA:       "UEFA",
	BadgeTypeChampions:  "Champions League",
	BadgeTypeEuropa:     "Europa League",
	BadgeTypePremier:    "Premier League",
	BadgeTypeBundesliga: "Bundesliga",
	BadgeTypeSerieA:     "Serie A",
	BadgeTypeLigue1:     "Ligue 1",
}

// Label returns the human readable league name.
func (b BadgeType) Label() string {
	if label, ok := badgeTypeLabels[b]; ok {
		return label
	}
	return string(b)
}

// Title upper-cases the first letter of every letter run and lower-cases the
// rest ("serie_a" becomes "Serie_A"). Badge option names are built from it.
func (b BadgeType) Title() string {
	var sb strings.Builder
	prevLetter := false
	for _, r := range string(b) {
		if unicode.IsLetter(r) {
			if prevLetter {
				sb.WriteRune(unicode.ToLower(r))
			} else {
				sb.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		sb.WriteRune(r)
		prevLetter = false
	}
	return sb.String()
}
