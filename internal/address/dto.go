package address

import (
	"strings"
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/types"
	"github.com/google/uuid"
)

// Input is the writable shape of an address.
type Input struct {
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	StreetAddress string `json:"street_address" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=100"`
	PostalCode    string `json:"postal_code" validate:"max=20"`
	Country       string `json:"country" validate:"max=100"`
	IsDefault     bool   `json:"is_default"`
}

func (in Input) apply(row *models.Address) {
	row.FirstName = strings.TrimSpace(in.FirstName)
	row.LastName = strings.TrimSpace(in.LastName)
	row.Phone = strings.TrimSpace(in.Phone)
	row.Email = strings.ToLower(strings.TrimSpace(in.Email))
	row.StreetAddress = strings.TrimSpace(in.StreetAddress)
	row.City = strings.TrimSpace(in.City)
	row.PostalCode = strings.TrimSpace(in.PostalCode)
	row.Country = strings.TrimSpace(in.Country)
	if row.Country == "" {
		row.Country = types.DefaultCountry
	}
}

func (in Input) missing() []string {
	var fields []string
	for name, value := range map[string]string{
		"first_name":     in.FirstName,
		"last_name":      in.LastName,
		"phone":          in.Phone,
		"street_address": in.StreetAddress,
		"city":           in.City,
	} {
		if strings.TrimSpace(value) == "" {
			fields = append(fields, name)
		}
	}
	return fields
}

type AddressDTO struct {
	ID            uuid.UUID `json:"id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email,omitempty"`
	StreetAddress string    `json:"street_address"`
	City          string    `json:"city"`
	PostalCode    string    `json:"postal_code,omitempty"`
	Country       string    `json:"country"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
}

func toDTO(a models.Address) AddressDTO {
	return AddressDTO{
		ID:            a.ID,
		FirstName:     a.FirstName,
		LastName:      a.LastName,
		Phone:         a.Phone,
		Email:         a.Email,
		StreetAddress: a.StreetAddress,
		City:          a.City,
		PostalCode:    a.PostalCode,
		Country:       a.Country,
		IsDefault:     a.IsDefault,
		CreatedAt:     a.CreatedAt,
	}
}
