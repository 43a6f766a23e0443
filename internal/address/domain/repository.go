package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID) (*SavedAddress, error)
	Upsert(ctx context.Context, db *gorm.DB, saved *SavedAddress) error
}
