package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	addressservice "github.com/smallbiznis/giftflow/internal/address/service"
	"github.com/smallbiznis/giftflow/internal/cart"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	"github.com/smallbiznis/giftflow/internal/checkout/domain"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	"github.com/smallbiznis/giftflow/internal/providers/email"
	"github.com/smallbiznis/giftflow/internal/ratelimit"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// errKeyClaimed aborts an attempt whose idempotency key was committed by a
// concurrent request.
var errKeyClaimed = errors.New("idempotency key already claimed")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Ledger        ledgerdomain.Service
	Address       addressdomain.Service
	CatalogRepo   catalogdomain.Repository
	OrderRepo     orderdomain.Repository
	EmployeeRepo  employeedomain.Repository
	TenantRepo    tenantdomain.Repository
	Limiter       *ratelimit.CheckoutLimiter     `optional:"true"`
	Email         email.Provider                 `optional:"true"`
	Metrics       *metrics.Metrics               `optional:"true"`
	StorefrontCfg *config.StorefrontConfigHolder `optional:"true"`
	Clock         clock.Clock                    `optional:"true"`
	StoreCfg      db.Config                      `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	ledger       ledgerdomain.Service
	address      addressdomain.Service
	catalogRepo  catalogdomain.Repository
	orderRepo    orderdomain.Repository
	employeeRepo employeedomain.Repository
	tenantRepo   tenantdomain.Repository
	limiter      *ratelimit.CheckoutLimiter
	email        email.Provider
	metrics      *metrics.Metrics
	cfg          *config.StorefrontConfigHolder
	clock        clock.Clock
	timeout      time.Duration
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	mailer := p.Email
	if mailer == nil {
		mailer = &email.NoOpProvider{}
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("checkout.service"),
		genID:        p.GenID,
		ledger:       p.Ledger,
		address:      p.Address,
		catalogRepo:  p.CatalogRepo,
		orderRepo:    p.OrderRepo,
		employeeRepo: p.EmployeeRepo,
		tenantRepo:   p.TenantRepo,
		limiter:      p.Limiter,
		email:        mailer,
		metrics:      p.Metrics,
		cfg:          p.StorefrontCfg,
		clock:        c,
		timeout:      p.StoreCfg.OperationTimeout,
	}
}

// Checkout debits the employee and records the order in one transaction.
// Either both happen or neither does.
func (s *Service) Checkout(ctx context.Context, req domain.Request) (orderdomain.Order, error) {
	order, replayed, err := s.checkout(ctx, req)
	if err != nil {
		s.metrics.RecordCheckout(ctx, outcome(err), 0)
		s.log.Info("checkout declined",
			zap.String("tenant_id", req.TenantID.String()),
			zap.String("employee_id", req.EmployeeID.String()),
			zap.String("reason", outcome(err)),
			zap.Error(err),
		)
		return orderdomain.Order{}, err
	}
	if replayed {
		s.metrics.RecordCheckout(ctx, "replayed", 0)
		return order, nil
	}

	s.metrics.RecordCheckout(ctx, "success", order.TotalPoints)
	s.log.Info("checkout completed",
		zap.String("tenant_id", order.TenantID.String()),
		zap.String("employee_id", order.EmployeeID.String()),
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_points", order.TotalPoints),
		zap.Int("items", len(order.Items)),
	)
	s.notify(ctx, order)
	return order, nil
}

func (s *Service) checkout(ctx context.Context, req domain.Request) (orderdomain.Order, bool, error) {
	if req.Cart.IsEmpty() {
		return orderdomain.Order{}, false, domain.ErrEmptyCart
	}
	addr, err := addressservice.Validate(req.ShippingAddress)
	if err != nil {
		return orderdomain.Order{}, false, err
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > domain.MaxIdempotencyKeyLength {
		return orderdomain.Order{}, false, domain.ErrInvalidIdempotencyKey
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if key != "" {
		existing, err := s.replay(ctx, req, key)
		if err != nil || existing != nil {
			return deref(existing), existing != nil, err
		}
	}

	if _, err := s.limiter.Allow(ctx, req.EmployeeID); err != nil {
		s.metrics.RecordRateLimitDenied(ctx, "checkout")
		return orderdomain.Order{}, false, err
	}
	release, err := s.limiter.Acquire(ctx, req.EmployeeID)
	if err != nil {
		return orderdomain.Order{}, false, err
	}
	defer release()

	orderID := s.genID.Generate()
	orderNumber := "GF-" + ulid.Make().String()
	retries := s.cfg.Get().CheckoutRetries

	for attempt := 0; ; attempt++ {
		var order orderdomain.Order
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			order, err = s.place(ctx, tx, req, addr, key, orderID, orderNumber)
			return err
		})
		switch {
		case err == nil:
			return order, false, nil
		case errors.Is(err, errKeyClaimed):
			existing, err := s.replay(ctx, req, key)
			if err != nil {
				return orderdomain.Order{}, false, err
			}
			if existing == nil {
				return orderdomain.Order{}, false, domain.ErrStoreUnavailable
			}
			return *existing, true, nil
		case isRetryable(err):
			if attempt < retries {
				s.log.Debug("retrying checkout", zap.Int("attempt", attempt+1), zap.Error(err))
				continue
			}
			return orderdomain.Order{}, false, errors.Join(domain.ErrStoreUnavailable, err)
		default:
			return orderdomain.Order{}, false, db.Classify(err)
		}
	}
}

// place runs every checkout write against tx.
func (s *Service) place(
	ctx context.Context,
	tx *gorm.DB,
	req domain.Request,
	addr addressdomain.ShippingAddress,
	key string,
	orderID snowflake.ID,
	orderNumber string,
) (orderdomain.Order, error) {
	now := s.clock.Now()

	if key != "" {
		err := s.orderRepo.ClaimIdempotencyKey(ctx, tx, &orderdomain.CheckoutRequest{
			EmployeeID:     req.EmployeeID,
			IdempotencyKey: key,
			OrderID:        orderID,
			CreatedAt:      now,
		})
		if db.IsDuplicateKeyErr(err) {
			return orderdomain.Order{}, errKeyClaimed
		}
		if err != nil {
			return orderdomain.Order{}, err
		}
	}

	employee, err := s.employeeRepo.FindByID(ctx, tx, req.TenantID, req.EmployeeID)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if employee == nil {
		return orderdomain.Order{}, domain.ErrEmployeeNotFound
	}
	if !employee.IsActive() {
		return orderdomain.Order{}, domain.ErrEmployeeInactive
	}

	tenant, err := s.tenantRepo.FindByID(ctx, tx, req.TenantID)
	if err != nil {
		return orderdomain.Order{}, err
	}
	if tenant == nil {
		return orderdomain.Order{}, tenantdomain.ErrNotFound
	}
	if tenant.Status != tenantdomain.StatusApproved {
		return orderdomain.Order{}, domain.ErrTenantNotApproved
	}

	items, total, err := s.resolve(ctx, tx, req, orderID)
	if err != nil {
		return orderdomain.Order{}, err
	}

	for _, item := range items {
		if !item.tracked {
			continue
		}
		ok, err := s.catalogRepo.DecrementStock(ctx, tx, item.ProductID, item.Quantity, now)
		if err != nil {
			return orderdomain.Order{}, err
		}
		if !ok {
			return orderdomain.Order{}, &domain.CatalogMismatchError{ProductID: item.ProductID, Reason: domain.ReasonInsufficientStock}
		}
	}

	if total > 0 {
		_, err := s.ledger.DebitTx(ctx, tx, ledgerdomain.DebitRequest{
			TenantID:   req.TenantID,
			EmployeeID: req.EmployeeID,
			Amount:     total,
			SourceType: ledgerdomain.SourceTypeOrder,
			SourceID:   orderID.String(),
			Note:       orderNumber,
		})
		if err != nil {
			return orderdomain.Order{}, err
		}
	}

	order := orderdomain.Order{
		ID:              orderID,
		OrderNumber:     orderNumber,
		TenantID:        req.TenantID,
		EmployeeID:      req.EmployeeID,
		EmployeeName:    employee.Name,
		EmployeeEmail:   employee.Email,
		Status:          orderdomain.StatusPending,
		TotalPoints:     total,
		ShippingAddress: datatypes.NewJSONType(addr),
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           make([]orderdomain.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.Items = append(order.Items, item.OrderItem)
	}
	if err := s.orderRepo.Insert(ctx, tx, &order); err != nil {
		return orderdomain.Order{}, err
	}

	if req.SaveAddress {
		if err := s.address.UpsertTx(ctx, tx, req.TenantID, req.EmployeeID, addr); err != nil {
			return orderdomain.Order{}, err
		}
	}
	return order, nil
}

type resolvedItem struct {
	orderdomain.OrderItem
	tracked bool
}

// resolve re-reads every cart line from the catalog and prices it there. The
// client's snapshot is never trusted.
func (s *Service) resolve(ctx context.Context, tx *gorm.DB, req domain.Request, orderID snowflake.ID) ([]resolvedItem, int64, error) {
	products, err := s.catalogRepo.FindSelected(ctx, tx, req.TenantID, req.Cart.ProductIDs())
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[snowflake.ID]*catalogdomain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var total int64
	items := make([]resolvedItem, 0, req.Cart.Len())
	for _, line := range req.Cart.Lines() {
		p, ok := byID[line.ProductID()]
		if !ok {
			return nil, 0, &domain.CatalogMismatchError{ProductID: line.ProductID(), Reason: domain.ReasonUnavailable}
		}
		if line.Quantity <= 0 || line.Quantity > cart.MaxLineQuantity {
			return nil, 0, domain.ErrInvalidQuantity
		}
		if !p.Purchasable(line.Quantity) {
			return nil, 0, &domain.CatalogMismatchError{ProductID: p.ID, Reason: mismatchReason(*p)}
		}

		lineTotal, ok := lineCost(p.PointCost, line.Quantity)
		if !ok || lineTotal > math.MaxInt64-total {
			return nil, 0, domain.ErrTotalOverflow
		}
		total += lineTotal
		items = append(items, resolvedItem{
			OrderItem: orderdomain.OrderItem{
				ID:          s.genID.Generate(),
				OrderID:     orderID,
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitCost:    p.PointCost,
				Quantity:    line.Quantity,
				LineTotal:   lineTotal,
			},
			tracked: p.Stock != nil,
		})
	}
	return items, total, nil
}

// lineCost multiplies a non-negative unit cost by a positive quantity,
// reporting false when the product does not fit in an int64.
func lineCost(unit, qty int64) (int64, bool) {
	if unit < 0 || qty <= 0 {
		return 0, false
	}
	if unit > math.MaxInt64/qty {
		return 0, false
	}
	return unit * qty, true
}

func (s *Service) replay(ctx context.Context, req domain.Request, key string) (*orderdomain.Order, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, s.db, req.EmployeeID, key)
	if err != nil {
		return nil, db.Classify(err)
	}
	if existing != nil && existing.TenantID != req.TenantID {
		return nil, domain.ErrInvalidIdempotencyKey
	}
	return existing, nil
}

func (s *Service) notify(ctx context.Context, order orderdomain.Order) {
	if order.EmployeeEmail == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	result := "sent"
	err := s.email.SendTemplate(sendCtx, []string{order.EmployeeEmail}, email.TemplateOrderPlaced, map[string]any{
		"employee_name": order.EmployeeName,
		"order_number":  order.OrderNumber,
		"total_points":  order.TotalPoints,
		"items":         order.Items,
	})
	if err != nil {
		result = "failed"
		s.log.Warn("order confirmation failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	s.metrics.RecordNotification(ctx, email.TemplateOrderPlaced, result)
}

func mismatchReason(p catalogdomain.Product) string {
	switch {
	case !p.Active || p.DeletedAt.Valid:
		return domain.ReasonInactive
	case p.Stock != nil && *p.Stock <= 0:
		return domain.ReasonOutOfStock
	default:
		return domain.ReasonInsufficientStock
	}
}

func isRetryable(err error) bool {
	return errors.Is(err, db.ErrConcurrentModification) || db.IsSerializationErr(err)
}

func outcome(err error) string {
	var mismatch *domain.CatalogMismatchError
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrIncompleteAddress):
		return "incomplete_address"
	case errors.As(err, &mismatch):
		return "catalog_mismatch"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ratelimit.ErrRateLimited), errors.Is(err, ratelimit.ErrCheckoutPending):
		return "rate_limited"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "rejected"
	}
}

func deref(o *orderdomain.Order) orderdomain.Order {
	if o == nil {
		return orderdomain.Order{}
	}
	return *o
}
