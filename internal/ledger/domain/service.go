package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/pkg/db"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type DebitRequest struct {
	TenantID   snowflake.ID
	EmployeeID snowflake.ID
	Amount     int64
	SourceType SourceType
	SourceID   string
	Note       string
}

// CreditRequest adds points. A non-empty ReferenceID makes the credit
// idempotent per employee and source type.
type CreditRequest struct {
	TenantID    snowflake.ID
	EmployeeID  snowflake.ID
	Amount      int64
	SourceType  SourceType
	ReferenceID string
	Note        string
}

type Service interface {
	Debit(ctx context.Context, req DebitRequest) (Balance, error)
	// DebitTx runs the debit inside the caller's transaction.
	DebitTx(ctx context.Context, tx *gorm.DB, req DebitRequest) (Balance, error)
	Credit(ctx context.Context, req CreditRequest) (Balance, error)
	CreditTx(ctx context.Context, tx *gorm.DB, req CreditRequest) (Balance, error)
	GetBalance(ctx context.Context, tenantID, employeeID snowflake.ID) (Balance, error)
	ListEntries(ctx context.Context, tenantID, employeeID snowflake.ID, page pagination.Pagination) ([]Entry, pagination.PageInfo, error)
}

var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidSource     = errors.New("invalid_ledger_source")
	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrBalanceOverflow   = errors.New("balance_overflow")
	ErrEmployeeNotFound  = errors.New("employee_not_found")

	// ErrConcurrentModification is returned after MaxCASAttempts lost
	// compare-and-swap rounds.
	ErrConcurrentModification = db.ErrConcurrentModification
)
