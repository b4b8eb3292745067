package enums

import "fmt"

// CustomizationType identifies the family of a purchasable customization.
type CustomizationType string

const (
	CustomizationTypeName    CustomizationType = "name"
	CustomizationTypeBadge   CustomizationType = "badge"
	CustomizationTypeSponsor CustomizationType = "sponsor"
)

var validCustomizationTypes = []CustomizationType{
	CustomizationTypeName,
	CustomizationTypeBadge,
	CustomizationTypeSponsor,
}

// String implements fmt.Stringer.
func (c CustomizationType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomizationType.
func (c CustomizationType) IsValid() bool {
	for _, candidate := range validCustomizationTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCustomizationType converts raw input into a CustomizationType.
func ParseCustomizationType(value string) (CustomizationType, error) {
	for _, candidate := range validCustomizationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid customization type %q", value)
}
