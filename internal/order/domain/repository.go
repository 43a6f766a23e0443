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
	// Insert writes the order header and its items.
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, key string) (*Order, error)
	ListByEmployee(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID, filter ListFilter) ([]*Order, error)
	ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter) ([]*Order, error)
	ListAll(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, error)
	// UpdateStatus moves the order only if it is still in from.
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, now time.Time) (bool, error)
	InsertStatusEvent(ctx context.Context, db *gorm.DB, event *StatusEvent) error
	ListStatusEvents(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*StatusEvent, error)

	ClaimIdempotencyKey(ctx context.Context, db *gorm.DB, req *CheckoutRequest) error
}
