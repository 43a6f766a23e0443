package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Product is an item in the gifting company's master catalog. A nil Stock
// means the product is not stock-tracked.
type Product struct {
	ID          snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"not null;default:''" json:"description"`
	PointCost   int64          `gorm:"column:point_cost;not null" json:"point_cost"`
	Stock       *int64         `gorm:"column:stock" json:"stock"`
	Category    string         `gorm:"not null;default:'';index" json:"category"`
	ImageURL    string         `gorm:"column:image_url;not null;default:''" json:"image_url"`
	Active      bool           `gorm:"not null" json:"active"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string { return "products" }

// Purchasable reports whether qty units can be sold right now.
func (p Product) Purchasable(qty int64) bool {
	if !p.Active || p.DeletedAt.Valid {
		return false
	}
	if p.Stock == nil {
		return true
	}
	return *p.Stock > 0 && *p.Stock >= qty
}

// TenantProduct marks a product as part of a tenant's curated storefront.
type TenantProduct struct {
	TenantID  snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"tenant_id"`
	ProductID snowflake.ID `gorm:"primaryKey;autoIncrement:false;index" json:"product_id"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (TenantProduct) TableName() string { return "tenant_products" }
