package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/employee/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).Create(employee).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Employee, error) {
	return r.findOne(ctx, db, "tenant_id = ? AND id = ?", tenantID, id)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, email string) (*domain.Employee, error) {
	return r.findOne(ctx, db, "tenant_id = ? AND email = ?", tenantID, email)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Employee, error) {
	var employee domain.Employee
	res := db.WithContext(ctx).Where(query, args...).Limit(1).Find(&employee)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &employee, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter) ([]*domain.Employee, error) {
	stmt := db.WithContext(ctx).Model(&domain.Employee{}).Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, filter.Pagination)
	if err != nil {
		return nil, err
	}
	var employees []*domain.Employee
	if err := stmt.Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, status domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Employee{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&domain.Employee{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
