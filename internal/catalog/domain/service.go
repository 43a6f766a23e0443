package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateProductRequest struct {
	Name        string
	Description string
	PointCost   int64
	Stock       *int64
	Category    string
	ImageURL    string
	Active      *bool
}

type UpdateProductRequest struct {
	Name        *string
	Description *string
	PointCost   *int64
	Category    *string
	ImageURL    *string
	Active      *bool
}

type ListProductFilter struct {
	Category string
	Active   *bool
}

type Service interface {
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateProductRequest) (Product, error)
	SetStock(ctx context.Context, id snowflake.ID, stock *int64) (Product, error)
	Delete(ctx context.Context, id snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (Product, error)
	List(ctx context.Context, filter ListProductFilter) ([]Product, error)

	// ListVisibleProducts is the catalog selector: what a tenant's employees
	// may browse and buy.
	ListVisibleProducts(ctx context.Context, tenantID snowflake.ID) ([]Product, error)
}

var (
	ErrInvalidID        = errors.New("invalid_product_id")
	ErrInvalidName      = errors.New("invalid_product_name")
	ErrInvalidPointCost = errors.New("invalid_point_cost")
	ErrInvalidStock     = errors.New("invalid_stock")
	ErrInvalidImageURL  = errors.New("invalid_image_url")
	ErrNotFound         = errors.New("product_not_found")
)
