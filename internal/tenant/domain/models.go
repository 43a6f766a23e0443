package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(raw), true
	default:
		return "", false
	}
}

// CanTransition reports whether a review may move a tenant from one status
// to another. Rejected tenants can be reconsidered; approval is final.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusRejected
	case StatusRejected:
		return to == StatusApproved
	default:
		return false
	}
}

// Branding customises a tenant's storefront.
type Branding struct {
	LogoURL          string `json:"logo_url"`
	PrimaryColor     string `json:"primary_color"`
	SecondaryColor   string `json:"secondary_color"`
	Greeting         string `json:"greeting"`
	FestivalGreeting string `json:"festival_greeting"`
}

func DefaultBranding() Branding {
	return Branding{
		PrimaryColor:     "#2563eb",
		SecondaryColor:   "#1d4ed8",
		Greeting:         "Welcome to your gift store",
		FestivalGreeting: "Season's greetings from all of us",
	}
}

// Tenant is a corporate client. Slug is assigned at registration and never
// changes afterwards.
type Tenant struct {
	ID           snowflake.ID                 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DisplayName  string                       `gorm:"not null" json:"display_name"`
	ContactName  string                       `gorm:"not null;default:''" json:"contact_name"`
	ContactEmail string                       `gorm:"not null" json:"contact_email"`
	OwnerSubject string                       `gorm:"not null;uniqueIndex" json:"-"`
	Slug         string                       `gorm:"not null;uniqueIndex" json:"slug"`
	Status       Status                       `gorm:"type:varchar(16);not null;index" json:"status"`
	Branding     datatypes.JSONType[Branding] `gorm:"not null" json:"branding"`
	ReviewNote   string                       `gorm:"not null;default:''" json:"review_note,omitempty"`
	ReviewedAt   *time.Time                   `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time                    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                    `gorm:"not null" json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }
