package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/order/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&order.Items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	res := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Where("id = ?", id).
		Limit(1).
		Find(&order)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, employeeID snowflake.ID, key string) (*domain.Order, error) {
	var claim domain.CheckoutRequest
	res := db.WithContext(ctx).
		Where("employee_id = ? AND idempotency_key = ?", employeeID, key).
		Limit(1).
		Find(&claim)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, db, claim.OrderID)
}

func (r *repo) ListByEmployee(ctx context.Context, db *gorm.DB, tenantID, employeeID snowflake.ID, filter domain.ListFilter) ([]*domain.Order, error) {
	stmt := db.WithContext(ctx).Where("tenant_id = ? AND employee_id = ?", tenantID, employeeID)
	return r.list(stmt, filter)
}

func (r *repo) ListByTenant(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter) ([]*domain.Order, error) {
	stmt := db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	return r.list(stmt, filter)
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	return r.list(db.WithContext(ctx), filter)
}

func (r *repo) list(stmt *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	stmt = stmt.Model(&domain.Order{}).Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") })
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, filter.Pagination)
	if err != nil {
		return nil, err
	}
	var orders []*domain.Order
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertStatusEvent(ctx context.Context, db *gorm.DB, event *domain.StatusEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) ListStatusEvents(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]*domain.StatusEvent, error) {
	var events []*domain.StatusEvent
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&events).Error
	return events, err
}

func (r *repo) ClaimIdempotencyKey(ctx context.Context, db *gorm.DB, req *domain.CheckoutRequest) error {
	return db.WithContext(ctx).Create(req).Error
}
