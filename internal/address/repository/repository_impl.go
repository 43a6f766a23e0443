package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/address/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID) (*domain.SavedAddress, error) {
	var saved domain.SavedAddress
	res := db.WithContext(ctx).
		Where("employee_id = ? AND tenant_id = ?", employeeID, tenantID).
		Limit(1).
		Find(&saved)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &saved, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, saved *domain.SavedAddress) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"address", "updated_at"}),
		}).
		Create(saved).Error
}
