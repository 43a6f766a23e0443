package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/tenant/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tenant *domain.Tenant) error {
	return db.WithContext(ctx).Create(tenant).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Tenant, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Tenant, error) {
	return r.findOne(ctx, db, "slug = ?", slug)
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerSubject string) (*domain.Tenant, error) {
	return r.findOne(ctx, db, "owner_subject = ?", ownerSubject)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Tenant, error) {
	var tenant domain.Tenant
	res := db.WithContext(ctx).Where(query, args...).Limit(1).Find(&tenant)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &tenant, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status domain.Status) ([]*domain.Tenant, error) {
	stmt := db.WithContext(ctx).Model(&domain.Tenant{})
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	var tenants []*domain.Tenant
	err := stmt.Order("created_at desc, id desc").Find(&tenants).Error
	return tenants, err
}

func (r *repo) SlugExists(ctx context.Context, db *gorm.DB, slug string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Tenant{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, note string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"review_note": note,
			"reviewed_at": now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) UpdateBranding(ctx context.Context, db *gorm.DB, id snowflake.ID, branding domain.Branding, now time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"branding":   datatypes.NewJSONType(branding),
			"updated_at": now,
		}).Error
}
