package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

const DefaultCountry = "Côte d'Ivoire"

// AddressSnapshot is the shipping address frozen on an order.
type AddressSnapshot struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	PostalCode    string `json:"postal_code,omitempty"`
	Country       string `json:"country"`
}

// FullName joins first and last name.
func (a AddressSnapshot) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Value marshals the snapshot as JSON text.
func (a AddressSnapshot) Value() (driver.Value, error) {
	if strings.TrimSpace(a.StreetAddress) == "" {
		return nil, fmt.Errorf("address: missing street_address")
	}
	if strings.TrimSpace(a.City) == "" {
		return nil, fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.Country) == "" {
		a.Country = DefaultCountry
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("address: marshal %w", err)
	}
	return string(raw), nil
}

// Scan decodes the JSON text column.
func (a *AddressSnapshot) Scan(value interface{}) error {
	if value == nil {
		*a = AddressSnapshot{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("address: unsupported scan type %T", value)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		*a = AddressSnapshot{}
		return nil
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return fmt.Errorf("address: unmarshal %w", err)
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return nil
}

// GormDataType stores the snapshot in a text column on every dialect.
func (AddressSnapshot) GormDataType() string {
	return "text"
}
