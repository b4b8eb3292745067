package models

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order is immutable after creation except for its status fields and timestamps.
type Order struct {
	ID               uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OrderNumber      string                   `gorm:"column:order_number;not null;uniqueIndex"`
	UserID           uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID        *uuid.UUID               `gorm:"column:address_id;type:uuid"`
	ShippingAddress  types.AddressSnapshot    `gorm:"column:shipping_address;not null"`
	Status           enums.OrderStatus        `gorm:"column:status;type:text;not null"`
	PaymentStatus    enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null"`
	PaymentMethod    enums.PaymentMethod      `gorm:"column:payment_method;type:text;not null"`
	Subtotal         decimal.Decimal          `gorm:"column:subtotal;type:numeric(10,2);not null"`
	ShippingCost     decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(10,2);not null"`
	Total            decimal.Decimal          `gorm:"column:total;type:numeric(10,2);not null"`
	Notes            string                   `gorm:"column:notes"`
	StockCommittedAt *time.Time               `gorm:"column:stock_committed_at"`
	PaidAt           *time.Time               `gorm:"column:paid_at"`
	Items            []OrderItem              `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = enums.OrderPaymentStatusPending
	}
	return nil
}

// CanBeCancelled reports whether the order is still pending or processing.
func (o Order) CanBeCancelled() bool {
	return o.Status == enums.OrderStatusPending || o.Status == enums.OrderStatusProcessing
}

// IsPaid reports whether payment has been confirmed.
func (o Order) IsPaid() bool {
	return o.PaymentStatus == enums.OrderPaymentStatusPaid
}

// OrderItem snapshots a cart line. ProductID is nulled when the product is deleted.
type OrderItem struct {
	ID             uuid.UUID                `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID                `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      *uuid.UUID               `gorm:"column:product_id;type:uuid"`
	ProductName    string                   `gorm:"column:product_name;not null"`
	Size           string                   `gorm:"column:size;type:text;not null"`
	Quantity       int                      `gorm:"column:quantity;not null"`
	Price          decimal.Decimal          `gorm:"column:price;type:numeric(10,2);not null"`
	TotalPrice     decimal.Decimal          `gorm:"column:total_price;type:numeric(10,2);not null"`
	Customizations []OrderItemCustomization `gorm:"foreignKey:OrderItemID"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// OrderItemCustomization snapshots a cart customization; the price is copied.
type OrderItemCustomization struct {
	ID          uuid.UUID               `gorm:"type:uuid;primaryKey"`
	OrderItemID uuid.UUID               `gorm:"column:order_item_id;type:uuid;not null;index"`
	OptionID    *uuid.UUID              `gorm:"column:option_id;type:uuid"`
	OptionName  string                  `gorm:"column:option_name;not null"`
	OptionType  enums.CustomizationType `gorm:"column:option_type;type:text;not null"`
	CustomText  string                  `gorm:"column:custom_text;not null"`
	Quantity    int                     `gorm:"column:quantity;not null"`
	Price       decimal.Decimal         `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (c *OrderItemCustomization) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
