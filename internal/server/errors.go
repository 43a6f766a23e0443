package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	"github.com/smallbiznis/giftflow/internal/authorization"
	"github.com/smallbiznis/giftflow/internal/cart"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/giftflow/internal/checkout/domain"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	"github.com/smallbiznis/giftflow/internal/identity"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	"github.com/smallbiznis/giftflow/internal/principal"
	"github.com/smallbiznis/giftflow/internal/ratelimit"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

// businessErrors are well-formed requests the domain refused. Each keeps its
// own type so clients can branch on it.
var businessErrors = []struct {
	err     error
	message string
}{
	{ledgerdomain.ErrInsufficientFunds, "insufficient points for this order"},
	{checkoutdomain.ErrEmptyCart, "cart is empty"},
	{addressdomain.ErrIncompleteAddress, "shipping address is incomplete"},
	{checkoutdomain.ErrCatalogMismatch, "a cart item is no longer available"},
	{orderdomain.ErrInvalidTransition, "order status cannot move that way"},
	{tenantdomain.ErrInvalidTransition, "tenant has already been reviewed"},
	{tenantdomain.ErrTenantNotApproved, "tenant is not approved"},
	{checkoutdomain.ErrEmployeeInactive, "employee is inactive"},
	{employeedomain.ErrInactive, "employee is inactive"},
	{ledgerdomain.ErrBalanceOverflow, "balance would overflow"},
}

var validationErrors = []error{
	ErrInvalidRequest,
	catalogdomain.ErrInvalidID,
	catalogdomain.ErrInvalidName,
	catalogdomain.ErrInvalidPointCost,
	catalogdomain.ErrInvalidStock,
	catalogdomain.ErrInvalidImageURL,
	tenantdomain.ErrInvalidName,
	tenantdomain.ErrInvalidEmail,
	tenantdomain.ErrInvalidOwner,
	tenantdomain.ErrInvalidColor,
	tenantdomain.ErrInvalidLogoURL,
	tenantdomain.ErrInvalidProduct,
	employeedomain.ErrInvalidEmail,
	employeedomain.ErrInvalidName,
	employeedomain.ErrInvalidPoints,
	employeedomain.ErrInvalidStatus,
	employeedomain.ErrInvalidCSV,
	ledgerdomain.ErrInvalidAmount,
	ledgerdomain.ErrInvalidSource,
	addressdomain.ErrInvalidCountry,
	orderdomain.ErrInvalidStatus,
	checkoutdomain.ErrInvalidIdempotencyKey,
	checkoutdomain.ErrTotalOverflow,
	cart.ErrInvalidProduct,
	cart.ErrInvalidQuantity,
	pagination.ErrInvalidPageToken,
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusTooManyRequests {
			c.Header("Retry-After", "1")
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) string {
	_, payload := mapError(err)
	return payload.Type
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	for _, b := range businessErrors {
		if !errors.Is(err, b.err) {
			continue
		}
		message := b.message
		var mismatch *checkoutdomain.CatalogMismatchError
		if errors.As(err, &mismatch) {
			message = mismatch.Error()
		}
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    b.err.Error(),
			Message: message,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, principal.ErrNoPrincipal),
		errors.Is(err, identity.ErrUnauthenticated),
		errors.Is(err, identity.ErrInvalidClaims):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, authorization.ErrInvalidActor):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, tenantdomain.ErrAlreadyRegistered),
		errors.Is(err, tenantdomain.ErrSlugUnavailable),
		errors.Is(err, employeedomain.ErrDuplicateEmail),
		errors.Is(err, ratelimit.ErrCheckoutPending):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, db.ErrStoreUnavailable),
		errors.Is(err, db.ErrConcurrentModification):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "store_unavailable",
			Message: "service temporarily unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, tenantdomain.ErrNotFound),
		errors.Is(err, employeedomain.ErrNotFound),
		errors.Is(err, addressdomain.ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, referencedomain.ErrCountryNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) (string, bool) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return target.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch code {
	case "invalid_request":
		return "request"
	case "invalid_cart_product", "invalid_cart_quantity":
		return "lines"
	case "invalid_country_code":
		return "shipping_address"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_page_token":
		return "page token is malformed"
	case "invalid_idempotency_key":
		return "Idempotency-Key header is missing or too long"
	case "invalid_csv":
		return "file is not a valid employee CSV"
	default:
		return "invalid value"
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, tenantdomain.ErrAlreadyRegistered):
		return "a tenant is already registered for this account"
	case errors.Is(err, employeedomain.ErrDuplicateEmail):
		return "an employee with this email already exists"
	case errors.Is(err, ratelimit.ErrCheckoutPending):
		return "another checkout is in progress"
	default:
		return "conflict"
	}
}
