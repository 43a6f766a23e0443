package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const employeesTable = "employees"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID) (*domain.Account, error) {
	var acct domain.Account
	res := db.WithContext(ctx).
		Table(employeesTable).
		Select("id AS employee_id, tenant_id, points_balance AS balance, version").
		Where("id = ? AND tenant_id = ? AND deleted_at IS NULL", employeeID, tenantID).
		Limit(1).
		Find(&acct)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &acct, nil
}

func (r *repo) CompareAndSwap(ctx context.Context, db *gorm.DB, acct domain.Account, balance int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Table(employeesTable).
		Where("id = ? AND tenant_id = ? AND version = ?", acct.EmployeeID, acct.TenantID, acct.Version).
		Updates(map[string]any{
			"points_balance": balance,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindEntry(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, sourceType domain.SourceType, sourceID string) (*domain.Entry, error) {
	var entry domain.Entry
	res := db.WithContext(ctx).
		Where("employee_id = ? AND source_type = ? AND source_id = ?", employeeID, sourceType, sourceID).
		Limit(1).
		Find(&entry)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &entry, nil
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID, page pagination.Pagination) ([]*domain.Entry, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID)
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}
	var entries []*domain.Entry
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
