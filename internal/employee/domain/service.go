package domain

import (
	"context"
	"errors"
	"io"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
)

// CreateRequest adds an employee. A nil Points falls back to the configured
// default allocation.
type CreateRequest struct {
	TenantID   snowflake.ID
	Email      string
	Name       string
	Department string
	Points     *int64
}

type GrantRequest struct {
	TenantID    snowflake.ID
	EmployeeID  snowflake.ID
	Amount      int64
	ReferenceID string
	Note        string
}

type RowError struct {
	Row   int    `json:"row"`
	Email string `json:"email,omitempty"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Employee, error)
	Import(ctx context.Context, tenantID snowflake.ID, r io.Reader) (ImportResult, error)
	Get(ctx context.Context, tenantID, id snowflake.ID) (Employee, error)
	GetByEmail(ctx context.Context, tenantID snowflake.ID, email string) (Employee, error)
	List(ctx context.Context, tenantID snowflake.ID, filter ListFilter) ([]Employee, pagination.PageInfo, error)
	SetStatus(ctx context.Context, tenantID, id snowflake.ID, status Status) (Employee, error)
	Delete(ctx context.Context, tenantID, id snowflake.ID) error
	Grant(ctx context.Context, req GrantRequest) (ledgerdomain.Balance, error)
}

var (
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidName    = errors.New("invalid_employee_name")
	ErrInvalidPoints  = errors.New("invalid_points")
	ErrInvalidStatus  = errors.New("invalid_employee_status")
	ErrInvalidCSV     = errors.New("invalid_csv")
	ErrDuplicateEmail = errors.New("duplicate_email")
	ErrInactive       = errors.New("employee_inactive")
	ErrNotFound       = ledgerdomain.ErrEmployeeNotFound
)
