package enums

import "fmt"

type PaymentProvider string

const (
	PaymentProviderPayDunya PaymentProvider = "paydunya"
	PaymentProviderSquare   PaymentProvider = "square"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderPayDunya,
	PaymentProviderSquare,
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
