package cart

import (
	"github.com/google/uuid"
)

// LineRequest addresses a cart line by product and size.
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required"`
}

// QuantityRequest replaces the quantity of a cart line.
type QuantityRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}
