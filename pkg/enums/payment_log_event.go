package enums

import "fmt"

// PaymentLogEvent is the event tag recorded on payment_logs rows.
type PaymentLogEvent string

const (
	PaymentLogInitiated     PaymentLogEvent = "payment_initiated"
	PaymentLogAPICall       PaymentLogEvent = "api_call"
	PaymentLogCreated       PaymentLogEvent = "payment_created"
	PaymentLogError         PaymentLogEvent = "error"
	PaymentLogPaymentError  PaymentLogEvent = "payment_error"
	PaymentLogSuccess       PaymentLogEvent = "payment_success"
	PaymentLogFailed        PaymentLogEvent = "payment_failed"
	PaymentLogWaveInitiated PaymentLogEvent = "wave_payment_initiated"
	PaymentLogWaveSubmitted PaymentLogEvent = "wave_transaction_submitted"
	PaymentLogWaveConfirmed PaymentLogEvent = "wave_payment_confirmed"
	PaymentLogWaveRejected  PaymentLogEvent = "wave_payment_rejected"
)

var validPaymentLogEvents = []PaymentLogEvent{
	PaymentLogInitiated,
	PaymentLogAPICall,
	PaymentLogCreated,
	PaymentLogError,
	PaymentLogPaymentError,
	PaymentLogSuccess,
	PaymentLogFailed,
	PaymentLogWaveInitiated,
	PaymentLogWaveSubmitted,
	PaymentLogWaveConfirmed,
	PaymentLogWaveRejected,
}

// IsValid reports whether the value is a known PaymentLogEvent.
func (p PaymentLogEvent) IsValid() bool {
	for _, candidate := range validPaymentLogEvents {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentLogEvent converts raw input into a PaymentLogEvent.
func ParsePaymentLogEvent(value string) (PaymentLogEvent, error) {
	for _, candidate := range validPaymentLogEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment log event %q", value)
}
