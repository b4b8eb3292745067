package models

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Cart belongs to exactly one of a user or an anonymous session token.
type Cart struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID       *uuid.UUID `gorm:"column:user_id;type:uuid;uniqueIndex"`
	SessionToken *string    `gorm:"column:session_token;uniqueIndex"`
	Items        []CartItem `gorm:"foreignKey:CartID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// CartItem is one (product, size) line of a cart.
type CartItem struct {
	ID             uuid.UUID               `gorm:"type:uuid;primaryKey"`
	CartID         uuid.UUID               `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_product_size"`
	ProductID      uuid.UUID               `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_cart_product_size"`
	Product        *Product                `gorm:"foreignKey:ProductID"`
	Size           string                  `gorm:"column:size;type:text;not null;uniqueIndex:idx_cart_product_size"`
	Quantity       int                     `gorm:"column:quantity;not null"`
	UnitPrice      decimal.Decimal         `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Customizations []CartItemCustomization `gorm:"foreignKey:CartItemID"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// CustomizationTotal sums the prices of the attached customizations.
func (i CartItem) CustomizationTotal() decimal.Decimal {
	total := decimal.Zero
	for _, c := range i.Customizations {
		total = total.Add(c.Price)
	}
	return total
}

// Total is unit price x quantity plus customizations.
func (i CartItem) Total() decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(i.Customizations))
	for _, c := range i.Customizations {
		prices = append(prices, c.Price)
	}
	return pricing.LineTotal(i.UnitPrice, i.Quantity, prices...)
}

// CartItemCustomization attaches an option to a cart line. Price is derived and
// must be refreshed with Reprice before every save.
type CartItemCustomization struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	CartItemID uuid.UUID            `gorm:"column:cart_item_id;type:uuid;not null;index"`
	OptionID   uuid.UUID            `gorm:"column:option_id;type:uuid;not null"`
	Option     *CustomizationOption `gorm:"foreignKey:OptionID"`
	CustomText string               `gorm:"column:custom_text;size:50;not null"`
	Quantity   int                  `gorm:"column:quantity;not null"`
	Price      decimal.Decimal      `gorm:"column:price;type:numeric(10,2);not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}

func (c *CartItemCustomization) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// Reprice recomputes Price from the option and the current text/quantity.
func (c *CartItemCustomization) Reprice(option CustomizationOption) {
	if c.Quantity < 1 {
		c.Quantity = 1
	}
	c.OptionID = option.ID
	c.Price = pricing.CustomizationPrice(option.Type, option.Price, c.CustomText, c.Quantity)
}
