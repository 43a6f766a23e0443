package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
)

type RegisterRequest struct {
	OwnerSubject string
	DisplayName  string
	ContactName  string
	ContactEmail string
}

type UpdateBrandingRequest struct {
	LogoURL          *string
	PrimaryColor     *string
	SecondaryColor   *string
	Greeting         *string
	FestivalGreeting *string
}

// Storefront is the public view of an approved tenant.
type Storefront struct {
	TenantID    snowflake.ID            `json:"tenant_id"`
	Slug        string                  `json:"slug"`
	DisplayName string                  `json:"display_name"`
	Branding    Branding                `json:"branding"`
	Products    []catalogdomain.Product `json:"products"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (Tenant, error)
	GetBySlug(ctx context.Context, slug string) (Tenant, error)
	GetByOwner(ctx context.Context, ownerSubject string) (Tenant, error)
	List(ctx context.Context, status Status) ([]Tenant, error)
	Approve(ctx context.Context, id snowflake.ID) (Tenant, error)
	Reject(ctx context.Context, id snowflake.ID, note string) (Tenant, error)
	UpdateBranding(ctx context.Context, id snowflake.ID, req UpdateBrandingRequest) (Tenant, error)

	SelectedProductIDs(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error)
	SetProductSelection(ctx context.Context, id, productID snowflake.ID, selected bool) error
	ReplaceProductSelection(ctx context.Context, id snowflake.ID, productIDs []snowflake.ID) error

	GetStorefront(ctx context.Context, slug string) (Storefront, error)
}

var (
	ErrInvalidName       = errors.New("invalid_tenant_name")
	ErrInvalidEmail      = errors.New("invalid_contact_email")
	ErrInvalidOwner      = errors.New("invalid_owner")
	ErrInvalidColor      = errors.New("invalid_color")
	ErrInvalidLogoURL    = errors.New("invalid_logo_url")
	ErrInvalidProduct    = errors.New("invalid_product_selection")
	ErrAlreadyRegistered = errors.New("tenant_already_registered")
	ErrInvalidTransition = errors.New("invalid_tenant_transition")
	ErrTenantNotApproved = errors.New("tenant_not_approved")
	ErrNotFound          = errors.New("tenant_not_found")
	ErrSlugUnavailable   = errors.New("slug_unavailable")
)
