package cart

import (
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CustomizationInput selects an option by id, or by type (and badge type for
// badges). Name options take their text from Text, or from Name and Number.
type CustomizationInput struct {
	OptionID  *uuid.UUID              `json:"option_id,omitempty"`
	Type      enums.CustomizationType `json:"type,omitempty"`
	BadgeType enums.BadgeType         `json:"badge_type,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Number    string                  `json:"number,omitempty"`
	Text      string                  `json:"text,omitempty"`
	Quantity  int                     `json:"quantity,omitempty" validate:"gte=0"`
}

// AddInput adds quantity units of a product size. Override replaces the line
// quantity instead of incrementing it.
type AddInput struct {
	ProductID      uuid.UUID            `json:"product_id" validate:"required"`
	Size           string               `json:"size" validate:"required"`
	Quantity       int                  `json:"quantity" validate:"required,gte=1"`
	Override       bool                 `json:"override"`
	Customizations []CustomizationInput `json:"customizations,omitempty" validate:"dive"`
}

type CustomizationView struct {
	ID         uuid.UUID               `json:"id"`
	OptionID   uuid.UUID               `json:"option_id"`
	Type       enums.CustomizationType `json:"type"`
	BadgeType  enums.BadgeType         `json:"badge_type,omitempty"`
	Name       string                  `json:"name"`
	CustomText string                  `json:"custom_text,omitempty"`
	Quantity   int                     `json:"quantity"`
	Price      decimal.Decimal         `json:"price"`
}

type LineView struct {
	ID                 uuid.UUID           `json:"id"`
	ProductID          uuid.UUID           `json:"product_id"`
	ProductName        string              `json:"product_name"`
	ProductSlug        string              `json:"product_slug"`
	ImageURL           string              `json:"image_url,omitempty"`
	Size               string              `json:"size"`
	Quantity           int                 `json:"quantity"`
	UnitPrice          decimal.Decimal     `json:"unit_price"`
	CustomizationTotal decimal.Decimal     `json:"customization_total"`
	Total              decimal.Decimal     `json:"total"`
	TotalFormatted     string              `json:"total_formatted"`
	Available          bool                `json:"available"`
	Customizations     []CustomizationView `json:"customizations"`
}

// View is the cart as rendered to the shopper.
type View struct {
	ID                *uuid.UUID      `json:"id,omitempty"`
	Items             []LineView      `json:"items"`
	ItemCount         int             `json:"item_count"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	SubtotalFormatted string          `json:"subtotal_formatted"`
}

func emptyView() *View {
	return &View{Items: []LineView{}, Subtotal: decimal.Zero, SubtotalFormatted: money.Format(decimal.Zero)}
}

func customizationView(c models.CartItemCustomization) CustomizationView {
	view := CustomizationView{
		ID:         c.ID,
		OptionID:   c.OptionID,
		CustomText: c.CustomText,
		Quantity:   c.Quantity,
		Price:      c.Price,
	}
	if c.Option != nil {
		view.Type = c.Option.Type
		view.BadgeType = c.Option.BadgeType
		view.Name = c.Option.Name
	}
	return view
}

func lineView(item models.CartItem) LineView {
	view := LineView{
		ID:                 item.ID,
		ProductID:          item.ProductID,
		Size:               item.Size,
		Quantity:           item.Quantity,
		UnitPrice:          item.UnitPrice,
		CustomizationTotal: item.CustomizationTotal(),
		Total:              item.Total(),
		TotalFormatted:     money.Format(item.Total()),
		Customizations:     make([]CustomizationView, 0, len(item.Customizations)),
	}
	if p := item.Product; p != nil {
		view.ProductName = p.Name
		view.ProductSlug = p.Slug
		view.Available = p.IsActive && item.Quantity <= p.StockForSize(item.Size)
		if img := p.PrimaryImage(); img != nil {
			view.ImageURL = img.URL
		}
	}
	for _, c := range item.Customizations {
		view.Customizations = append(view.Customizations, customizationView(c))
	}
	return view
}

func buildView(cart *models.Cart, items []models.CartItem) *View {
	view := emptyView()
	id := cart.ID
	view.ID = &id
	total := decimal.Zero
	for _, item := range items {
		view.Items = append(view.Items, lineView(item))
		view.ItemCount += item.Quantity
		total = total.Add(item.Total())
	}
	view.Subtotal = total
	view.SubtotalFormatted = money.Format(total)
	return view
}
