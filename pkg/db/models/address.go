package models

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is a shipping address book entry. At most one per user is default.
type Address struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	FirstName     string    `gorm:"column:first_name;not null"`
	LastName      string    `gorm:"column:last_name;not null"`
	Phone         string    `gorm:"column:phone;not null"`
	Email         string    `gorm:"column:email"`
	StreetAddress string    `gorm:"column:street_address;not null"`
	City          string    `gorm:"column:city;not null"`
	PostalCode    string    `gorm:"column:postal_code"`
	Country       string    `gorm:"column:country;not null"`
	IsDefault     bool      `gorm:"column:is_default;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	if a.Country == "" {
		a.Country = types.DefaultCountry
	}
	return nil
}

// Snapshot freezes the address for an order.
func (a Address) Snapshot() types.AddressSnapshot {
	return types.AddressSnapshot{
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Phone:         a.Phone,
		Email:         a.Email,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
	}
}
