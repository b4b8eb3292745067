package customizations

import (
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OptionDTO is the public shape of a customization option.
type OptionDTO struct {
	ID             uuid.UUID               `json:"id"`
	Type           enums.CustomizationType `json:"type"`
	BadgeType      enums.BadgeType         `json:"badge_type,omitempty"`
	BadgeLabel     string                  `json:"badge_label,omitempty"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Price          decimal.Decimal         `json:"price"`
	PriceFormatted string                  `json:"price_formatted"`
	PerCharacter   bool                    `json:"per_character"`
}

// FromModel maps an option to its DTO.
func FromModel(o *models.CustomizationOption) OptionDTO {
	dto := OptionDTO{
		ID:             o.ID,
		Type:           o.Type,
		BadgeType:      o.BadgeType,
		Name:           o.Name,
		Description:    o.Description,
		Price:          o.Price,
		PriceFormatted: money.Format(o.Price),
		PerCharacter:   o.Type == enums.CustomizationTypeName,
	}
	if o.BadgeType != "" {
		dto.BadgeLabel = o.BadgeType.Label()
	}
	return dto
}
