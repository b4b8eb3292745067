package models

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Payment is the single payment attempt attached to an order.
type Payment struct {
	ID               uuid.UUID             `gorm:"type:uuid;primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Order            *Order                `gorm:"foreignKey:OrderID"`
	PaymentID        string                `gorm:"column:payment_id;not null;uniqueIndex"`
	Method           enums.PaymentMethod   `gorm:"column:method;type:text;not null"`
	Provider         enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	Amount           decimal.Decimal       `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency         string                `gorm:"column:currency;type:text;not null"`
	Status           enums.PaymentStatus   `gorm:"column:status;type:text;not null"`
	GatewayToken     *string               `gorm:"column:gateway_token;uniqueIndex"`
	ReceiptURL       string                `gorm:"column:receipt_url"`
	GatewayReference string                `gorm:"column:gateway_reference"`
	PaymentCode      string                `gorm:"column:payment_code"`
	PayerPhone       string                `gorm:"column:payer_phone"`
	TransactionID    string                `gorm:"column:transaction_id"`
	CustomerName     string                `gorm:"column:customer_name"`
	CustomerEmail    string                `gorm:"column:customer_email"`
	CustomerPhone    string                `gorm:"column:customer_phone"`
	ReviewedBy       *uuid.UUID            `gorm:"column:reviewed_by;type:uuid"`
	ReviewNote       string                `gorm:"column:review_note"`
	CompletedAt      *time.Time            `gorm:"column:completed_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	if p.Status == "" {
		p.Status = enums.PaymentStatusPending
	}
	if p.Currency == "" {
		p.Currency = "XOF"
	}
	return nil
}

// IsFinal reports whether the payment can no longer change state.
func (p Payment) IsFinal() bool {
	switch p.Status {
	case enums.PaymentStatusCompleted, enums.PaymentStatusFailed, enums.PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentLog is an append-only audit row for a payment.
type PaymentLog struct {
	ID        uuid.UUID             `gorm:"type:uuid;primaryKey"`
	PaymentID uuid.UUID             `gorm:"column:payment_id;type:uuid;not null;index"`
	Event     enums.PaymentLogEvent `gorm:"column:event;type:text;not null"`
	Message   string                `gorm:"column:message;not null"`
	Data      map[string]any        `gorm:"column:data;type:text;serializer:json"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (l *PaymentLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}
