package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// FindAccount reads the balance and version of a live employee.
	FindAccount(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID) (*Account, error)
	// CompareAndSwap writes balance only if the row still carries
	// acct.Version, bumping the version. It reports false when another
	// writer got there first.
	CompareAndSwap(ctx context.Context, db *gorm.DB, acct Account, balance int64, now time.Time) (bool, error)

	// InsertEntry reports false when an entry with the same source already
	// exists.
	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	FindEntry(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, sourceType SourceType, sourceID string) (*Entry, error)
	ListEntries(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID, page pagination.Pagination) ([]*Entry, error)
}
