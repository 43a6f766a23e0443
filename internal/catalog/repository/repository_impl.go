package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"point_cost":  product.PointCost,
			"stock":       product.Stock,
			"category":    product.Category,
			"image_url":   product.ImageURL,
			"active":      product.Active,
			"updated_at":  product.UpdatedAt,
		}).Error
}

func (r *repo) SoftDelete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	res := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&product)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []*domain.Product
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListProductFilter) ([]*domain.Product, error) {
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	var products []*domain.Product
	err := stmt.Order("name asc, id asc").Find(&products).Error
	return products, err
}

func (r *repo) ListVisible(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]*domain.Product, error) {
	var products []*domain.Product
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Joins("JOIN tenant_products ON tenant_products.product_id = products.id").
		Where("tenant_products.tenant_id = ?", tenantID).
		Where("products.active = ?", true).
		Where("(products.stock IS NULL OR products.stock > 0)").
		Order("products.name asc, products.id asc").
		Find(&products).Error
	return products, err
}

func (r *repo) FindSelected(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, ids []snowflake.ID) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []*domain.Product
	err := db.WithContext(ctx).
		Model(&domain.Product{}).
		Joins("JOIN tenant_products ON tenant_products.product_id = products.id").
		Where("tenant_products.tenant_id = ?", tenantID).
		Where("products.id IN ?", ids).
		Find(&products).Error
	return products, err
}

func (r *repo) DecrementStock(ctx context.Context, db *gorm.DB, id snowflake.ID, qty int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ? AND stock IS NOT NULL AND stock >= ?", id, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Select(ctx context.Context, db *gorm.DB, tenantID, productID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.TenantProduct{TenantID: tenantID, ProductID: productID, CreatedAt: now}).Error
}

func (r *repo) Deselect(ctx context.Context, db *gorm.DB, tenantID, productID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Delete(&domain.TenantProduct{}).Error
}

func (r *repo) ReplaceSelection(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, productIDs []snowflake.ID, now time.Time) error {
	if err := db.WithContext(ctx).Where("tenant_id = ?", tenantID).Delete(&domain.TenantProduct{}).Error; err != nil {
		return err
	}
	if len(productIDs) == 0 {
		return nil
	}
	rows := make([]domain.TenantProduct, 0, len(productIDs))
	for _, id := range productIDs {
		rows = append(rows, domain.TenantProduct{TenantID: tenantID, ProductID: id, CreatedAt: now})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) SelectedIDs(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.TenantProduct{}).
		Where("tenant_id = ?", tenantID).
		Order("product_id asc").
		Pluck("product_id", &ids).Error
	return ids, err
}
