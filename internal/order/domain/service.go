package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
)

type Service interface {
	Get(ctx context.Context, id snowflake.ID) (Order, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID snowflake.ID, filter ListFilter) ([]Order, pagination.PageInfo, error)
	ListByTenant(ctx context.Context, tenantID snowflake.ID, filter ListFilter) ([]Order, pagination.PageInfo, error)
	ListAll(ctx context.Context, filter ListFilter) ([]Order, pagination.PageInfo, error)
	History(ctx context.Context, id snowflake.ID) ([]StatusEvent, error)
	UpdateStatus(ctx context.Context, id snowflake.ID, to Status, actor string) (Order, error)
	PackingSlip(ctx context.Context, id snowflake.ID) (io.Reader, Order, error)
}

var (
	ErrNotFound          = errors.New("order_not_found")
	ErrInvalidStatus     = errors.New("invalid_order_status")
	ErrInvalidTransition = errors.New("invalid_transition")
)
