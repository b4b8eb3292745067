package payments

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewayInput selects the hosted provider. SourceID carries a card nonce
// for providers that charge directly.
type GatewayInput struct {
	Provider string `json:"provider" validate:"omitempty,oneof=paydunya square"`
	SourceID string `json:"source_id" validate:"max=255"`
}

// ManualSubmission is the shopper's proof of a Wave transfer.
type ManualSubmission struct {
	TransactionID string `json:"transaction_id" validate:"max=100"`
	Phone         string `json:"phone"`
}

// ReviewInput carries the staff note on a manual payment decision.
type ReviewInput struct {
	Note string `json:"note" validate:"max=1000"`
}

// PaymentDTO is a payment as rendered to shoppers and staff.
type PaymentDTO struct {
	ID              uuid.UUID           `json:"id"`
	PaymentID       string              `json:"payment_id"`
	OrderID         uuid.UUID           `json:"order_id"`
	Method          enums.PaymentMethod `json:"method"`
	Provider        string              `json:"provider,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	AmountFormatted string              `json:"amount_formatted"`
	Currency        string              `json:"currency"`
	Status          enums.PaymentStatus `json:"status"`
	ReceiptURL      string              `json:"receipt_url,omitempty"`
	PaymentCode     string              `json:"payment_code,omitempty"`
	PayerPhone      string              `json:"payer_phone,omitempty"`
	TransactionID   string              `json:"transaction_id,omitempty"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// GatewaySession is returned when a hosted checkout has been opened.
type GatewaySession struct {
	Payment     PaymentDTO `json:"payment"`
	Token       string     `json:"token"`
	RedirectURL string     `json:"redirect_url,omitempty"`
}

// ManualInstructions tell the shopper where to send a Wave transfer.
type ManualInstructions struct {
	Payment       PaymentDTO `json:"payment"`
	PaymentCode   string     `json:"payment_code"`
	MerchantPhone string     `json:"merchant_phone"`
	MerchantName  string     `json:"merchant_name"`
}

// LogDTO is one audit entry.
type LogDTO struct {
	ID        uuid.UUID             `json:"id"`
	Event     enums.PaymentLogEvent `json:"event"`
	Message   string                `json:"message"`
	Data      map[string]any        `json:"data,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

func toDTO(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:              p.ID,
		PaymentID:       p.PaymentID,
		OrderID:         p.OrderID,
		Method:          p.Method,
		Provider:        string(p.Provider),
		Amount:          p.Amount,
		AmountFormatted: money.Format(p.Amount),
		Currency:        p.Currency,
		Status:          p.Status,
		ReceiptURL:      p.ReceiptURL,
		PaymentCode:     p.PaymentCode,
		PayerPhone:      p.PayerPhone,
		TransactionID:   p.TransactionID,
		CompletedAt:     p.CompletedAt,
		CreatedAt:       p.CreatedAt,
	}
}

func toLogDTOs(rows []models.PaymentLog) []LogDTO {
	out := make([]LogDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, LogDTO{
			ID:        row.ID,
			Event:     row.Event,
			Message:   row.Message,
			Data:      row.Data,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
