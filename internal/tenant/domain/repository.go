package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tenant *Tenant) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Tenant, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Tenant, error)
	FindByOwner(ctx context.Context, db *gorm.DB, ownerSubject string) (*Tenant, error)
	List(ctx context.Context, db *gorm.DB, status Status) ([]*Tenant, error)
	SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error)
	// UpdateStatus moves a tenant from one status to another and reports
	// false when the tenant was not in the expected status.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, note string, now time.Time) (bool, error)
	UpdateBranding(ctx context.Context, db *gorm.DB, id snowflake.ID, branding Branding, now time.Time) error
}
