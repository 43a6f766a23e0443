package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	"github.com/smallbiznis/giftflow/internal/cart"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
)

const MaxIdempotencyKeyLength = 128

// Request converts an employee's cart into an order. TenantID and EmployeeID
// come from the authenticated principal, never from the request body.
type Request struct {
	TenantID        snowflake.ID
	EmployeeID      snowflake.ID
	IdempotencyKey  string
	Cart            *cart.Cart
	ShippingAddress addressdomain.ShippingAddress
	SaveAddress     bool
}

type Service interface {
	Checkout(ctx context.Context, req Request) (orderdomain.Order, error)
}

// Mismatch reasons reported in CatalogMismatchError.
const (
	ReasonUnavailable       = "unavailable"
	ReasonInactive          = "inactive"
	ReasonOutOfStock        = "out_of_stock"
	ReasonInsufficientStock = "insufficient_stock"
)

var (
	ErrEmptyCart             = errors.New("empty_cart")
	ErrCatalogMismatch       = errors.New("catalog_mismatch")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
	ErrEmployeeInactive      = errors.New("employee_inactive")
	ErrTotalOverflow         = errors.New("invalid_order_total")

	ErrInvalidQuantity   = cart.ErrInvalidQuantity
	ErrIncompleteAddress = addressdomain.ErrIncompleteAddress
	ErrInsufficientFunds = ledgerdomain.ErrInsufficientFunds
	ErrEmployeeNotFound  = ledgerdomain.ErrEmployeeNotFound
	ErrTenantNotApproved = tenantdomain.ErrTenantNotApproved
	ErrStoreUnavailable  = db.ErrStoreUnavailable
)

// CatalogMismatchError names the cart line that can no longer be bought.
type CatalogMismatchError struct {
	ProductID snowflake.ID
	Reason    string
}

func (e *CatalogMismatchError) Error() string {
	return fmt.Sprintf("catalog_mismatch: product %s is %s", e.ProductID, e.Reason)
}

func (e *CatalogMismatchError) Is(target error) bool {
	return target == ErrCatalogMismatch
}
