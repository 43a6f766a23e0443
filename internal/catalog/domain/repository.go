package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListProductFilter) ([]*Product, error)

	// ListVisible returns the tenant's selected products that are active,
	// not deleted and in stock, ordered by name.
	ListVisible(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*Product, error)
	// FindSelected returns the given products restricted to the tenant's
	// selection, including inactive or sold-out ones so callers can explain
	// why a line is not purchasable.
	FindSelected(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]*Product, error)
	// DecrementStock removes qty units when at least qty remain. It reports
	// false when the conditional update matched nothing.
	DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64, now time.Time) (bool, error)

	Select(ctx context.Context, db *gorm.DB, tenantID, productID snowflake.ID, now time.Time) error
	Deselect(ctx context.Context, db *gorm.DB, tenantID, productID snowflake.ID) error
	ReplaceSelection(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, productIDs []snowflake.ID, now time.Time) error
	SelectedIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]snowflake.ID, error)
}
