package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status Status
	pagination.Pagination
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, employee *Employee) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Employee, error)
	FindByEmail(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, email string) (*Employee, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter) ([]*Employee, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status Status, now time.Time) (bool, error)
	SoftDelete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
}
