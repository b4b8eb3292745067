package models

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CustomizationOption is a purchasable add-on, unique by (type, badge type, name).
// BadgeType is empty for every non-badge option.
type CustomizationOption struct {
	ID          uuid.UUID               `gorm:"type:uuid;primaryKey"`
	Type        enums.CustomizationType `gorm:"column:type;type:text;not null;uniqueIndex:idx_customization_natural_key"`
	BadgeType   enums.BadgeType         `gorm:"column:badge_type;type:text;not null;uniqueIndex:idx_customization_natural_key"`
	Name        string                  `gorm:"column:name;not null;uniqueIndex:idx_customization_natural_key"`
	Description string                  `gorm:"column:description"`
	Price       decimal.Decimal         `gorm:"column:price;type:numeric(10,2);not null"`
	IsActive    bool                    `gorm:"column:is_active;not null"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (o *CustomizationOption) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}
