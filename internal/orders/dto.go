package orders

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemCustomizationDTO struct {
	ID         uuid.UUID               `json:"id"`
	OptionID   *uuid.UUID              `json:"option_id,omitempty"`
	Name       string                  `json:"name"`
	Type       enums.CustomizationType `json:"type"`
	CustomText string                  `json:"custom_text,omitempty"`
	Quantity   int                     `json:"quantity"`
	Price      decimal.Decimal         `json:"price"`
}

type ItemDTO struct {
	ID             uuid.UUID              `json:"id"`
	ProductID      *uuid.UUID             `json:"product_id,omitempty"`
	ProductName    string                 `json:"product_name"`
	Size           string                 `json:"size"`
	Quantity       int                    `json:"quantity"`
	UnitPrice      decimal.Decimal        `json:"unit_price"`
	TotalPrice     decimal.Decimal        `json:"total_price"`
	Customizations []ItemCustomizationDTO `json:"customizations"`
}

// OrderDTO is the order as rendered to shoppers and staff.
type OrderDTO struct {
	ID              uuid.UUID                `json:"id"`
	OrderNumber     string                   `json:"order_number"`
	UserID          uuid.UUID                `json:"user_id"`
	Status          enums.OrderStatus        `json:"status"`
	PaymentStatus   enums.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod   enums.PaymentMethod      `json:"payment_method"`
	ShippingAddress types.AddressSnapshot    `json:"shipping_address"`
	Subtotal        decimal.Decimal          `json:"subtotal"`
	ShippingCost    decimal.Decimal          `json:"shipping_cost"`
	Total           decimal.Decimal          `json:"total"`
	TotalFormatted  string                   `json:"total_formatted"`
	Notes           string                   `json:"notes,omitempty"`
	CanBeCancelled  bool                     `json:"can_be_cancelled"`
	Items           []ItemDTO                `json:"items"`
	PaidAt          *time.Time               `json:"paid_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// FromModel maps an order and its preloaded items.
func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		PaymentMethod:   o.PaymentMethod,
		ShippingAddress: o.ShippingAddress,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Total:           o.Total,
		TotalFormatted:  money.Format(o.Total),
		Notes:           o.Notes,
		CanBeCancelled:  o.CanBeCancelled(),
		Items:           make([]ItemDTO, 0, len(o.Items)),
		PaidAt:          o.PaidAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.Items {
		row := ItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Size:           item.Size,
			Quantity:       item.Quantity,
			UnitPrice:      item.Price,
			TotalPrice:     item.TotalPrice,
			Customizations: make([]ItemCustomizationDTO, 0, len(item.Customizations)),
		}
		for _, c := range item.Customizations {
			row.Customizations = append(row.Customizations, ItemCustomizationDTO{
				ID:         c.ID,
				OptionID:   c.OptionID,
				Name:       c.OptionName,
				Type:       c.OptionType,
				CustomText: c.CustomText,
				Quantity:   c.Quantity,
				Price:      c.Price,
			})
		}
		dto.Items = append(dto.Items, row)
	}
	return dto
}
