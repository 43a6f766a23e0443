package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ShippingAddress struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone,omitempty"`
	PhoneCode    string `json:"phone_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zip_code,omitempty"`
	Country      string `json:"country,omitempty"`
}

// Normalize trims every field and upper-cases the country code.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		FullName:     strings.TrimSpace(a.FullName),
		Phone:        strings.TrimSpace(a.Phone),
		PhoneCode:    strings.TrimSpace(a.PhoneCode),
		CountryCode:  strings.ToUpper(strings.TrimSpace(a.CountryCode)),
		AddressLine1: strings.TrimSpace(a.AddressLine1),
		AddressLine2: strings.TrimSpace(a.AddressLine2),
		City:         strings.TrimSpace(a.City),
		State:        strings.TrimSpace(a.State),
		ZipCode:      strings.TrimSpace(a.ZipCode),
		Country:      strings.TrimSpace(a.Country),
	}
}

// Complete reports whether the minimum deliverable fields are present.
func (a ShippingAddress) Complete() bool {
	n := a.Normalize()
	return n.FullName != "" && n.AddressLine1 != "" && n.City != ""
}

// Lines renders the address for labels and packing slips.
func (a ShippingAddress) Lines() []string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State, a.ZipCode), ", "))
	return nonEmpty(a.AddressLine1, a.AddressLine2, cityLine, a.Country)
}

func (a ShippingAddress) PhoneNumber() string {
	return strings.TrimSpace(strings.Join(nonEmpty(a.PhoneCode, a.Phone), " "))
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SavedAddress is the employee's remembered delivery address.
type SavedAddress struct {
	EmployeeID snowflake.ID                        `gorm:"primaryKey;autoIncrement:false" json:"employee_id"`
	TenantID   snowflake.ID                        `gorm:"not null;index" json:"tenant_id"`
	Address    datatypes.JSONType[ShippingAddress] `gorm:"not null" json:"address"`
	UpdatedAt  time.Time                           `gorm:"not null" json:"updated_at"`
}

func (SavedAddress) TableName() string { return "employee_addresses" }
