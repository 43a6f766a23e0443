package service

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/observability/metrics"
	"github.com/smallbiznis/giftflow/internal/order/domain"
	"github.com/smallbiznis/giftflow/internal/providers/email"
	"github.com/smallbiznis/giftflow/internal/providers/pdf"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	TenantRepo tenantdomain.Repository
	PDF        pdf.Provider     `optional:"true"`
	Email      email.Provider   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
	Clock      clock.Clock      `optional:"true"`
	StoreCfg   db.Config        `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	tenantRepo tenantdomain.Repository
	pdf        pdf.Provider
	email      email.Provider
	metrics    *metrics.Metrics
	clock      clock.Clock
	timeout    time.Duration
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	slips := p.PDF
	if slips == nil {
		slips = pdf.New()
	}
	mailer := p.Email
	if mailer == nil {
		mailer = &email.NoOpProvider{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("order.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		pdf:        slips,
		email:      mailer,
		metrics:    p.Metrics,
		clock:      c,
		timeout:    p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Order, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.load(ctx, s.db, id)
}

func (s *Service) ListByEmployee(ctx context.Context, tenantID, employeeID snowflake.ID, filter domain.ListFilter) ([]domain.Order, pagination.PageInfo, error) {
	if err := validateFilter(filter); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.ListByEmployee(ctx, s.db, tenantID, employeeID, filter)
	return page(items, filter, err)
}

func (s *Service) ListByTenant(ctx context.Context, tenantID snowflake.ID, filter domain.ListFilter) ([]domain.Order, pagination.PageInfo, error) {
	if err := validateFilter(filter); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.ListByTenant(ctx, s.db, tenantID, filter)
	return page(items, filter, err)
}

func (s *Service) ListAll(ctx context.Context, filter domain.ListFilter) ([]domain.Order, pagination.PageInfo, error) {
	if err := validateFilter(filter); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.ListAll(ctx, s.db, filter)
	return page(items, filter, err)
}

func (s *Service) History(ctx context.Context, id snowflake.ID) ([]domain.StatusEvent, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.load(ctx, s.db, id); err != nil {
		return nil, err
	}
	items, err := s.repo.ListStatusEvents(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	events := make([]domain.StatusEvent, 0, len(items))
	for _, item := range items {
		events = append(events, *item)
	}
	return events, nil
}

// UpdateStatus advances an order by exactly one step. The write is
// conditional on the status read, so a concurrent update surfaces as
// ErrConcurrentModification instead of being overwritten.
func (s *Service) UpdateStatus(ctx context.Context, id snowflake.ID, to domain.Status, actor string) (domain.Order, error) {
	if _, ok := domain.ParseStatus(string(to)); !ok {
		return domain.Order{}, domain.ErrInvalidStatus
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = "system"
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		order domain.Order
		from  domain.Status
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		from = order.Status
		if !domain.CanTransition(from, to) {
			return domain.ErrInvalidTransition
		}

		now := s.clock.Now()
		updated, err := s.repo.UpdateStatus(ctx, tx, id, from, to, now)
		if err != nil {
			return err
		}
		if !updated {
			return db.ErrConcurrentModification
		}
		order.Status = to
		order.UpdatedAt = now

		return s.repo.InsertStatusEvent(ctx, tx, &domain.StatusEvent{
			ID:         s.genID.Generate(),
			OrderID:    id,
			FromStatus: from,
			ToStatus:   to,
			Actor:      actor,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return domain.Order{}, db.Classify(err)
	}

	s.metrics.RecordOrderTransition(ctx, string(from), string(to))
	s.log.Info("order status changed",
		zap.String("order_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", actor),
	)
	if to == domain.StatusShipped || to == domain.StatusDelivered {
		s.notify(ctx, order)
	}
	return order, nil
}

func (s *Service) PackingSlip(ctx context.Context, id snowflake.ID) (io.Reader, domain.Order, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	order, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, domain.Order{}, err
	}
	tenant, err := s.tenantRepo.FindByID(ctx, s.db, order.TenantID)
	if err != nil {
		return nil, domain.Order{}, db.Classify(err)
	}

	addr := order.ShippingAddress.Data()
	slip := pdf.PackingSlipData{
		OrderNumber:    order.OrderNumber,
		PlacedAt:       order.CreatedAt.Format("2006-01-02"),
		Status:         string(order.Status),
		RecipientName:  addr.FullName,
		RecipientPhone: addr.PhoneNumber(),
		AddressLines:   addr.Lines(),
		TotalPoints:    order.TotalPoints,
	}
	if tenant != nil {
		slip.TenantName = tenant.DisplayName
	}
	for _, item := range order.Items {
		slip.Items = append(slip.Items, pdf.PackingSlipItem{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			PointCost:   item.UnitCost,
			LineTotal:   item.LineTotal,
		})
	}

	r, err := s.pdf.GeneratePackingSlip(ctx, slip)
	if err != nil {
		return nil, domain.Order{}, err
	}
	return r, order, nil
}

func (s *Service) load(ctx context.Context, conn *gorm.DB, id snowflake.ID) (domain.Order, error) {
	if id == 0 {
		return domain.Order{}, domain.ErrNotFound
	}
	order, err := s.repo.FindByID(ctx, conn, id)
	if err != nil {
		return domain.Order{}, db.Classify(err)
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func (s *Service) notify(ctx context.Context, order domain.Order) {
	if order.EmployeeEmail == "" {
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	outcome := "sent"
	err := s.email.SendTemplate(sendCtx, []string{order.EmployeeEmail}, email.TemplateOrderStatusChanged, map[string]any{
		"employee_name": order.EmployeeName,
		"order_number":  order.OrderNumber,
		"status":        string(order.Status),
	})
	if err != nil {
		outcome = "failed"
		s.log.Warn("order notification failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
	s.metrics.RecordNotification(ctx, email.TemplateOrderStatusChanged, outcome)
}

func validateFilter(filter domain.ListFilter) error {
	if filter.Status == "" {
		return nil
	}
	if _, ok := domain.ParseStatus(string(filter.Status)); !ok {
		return domain.ErrInvalidStatus
	}
	return nil
}

func page(items []*domain.Order, filter domain.ListFilter, err error) ([]domain.Order, pagination.PageInfo, error) {
	if err != nil {
		return nil, pagination.PageInfo{}, db.Classify(err)
	}
	items, info := pagination.BuildCursorPageInfo(items, filter.Limit(), func(o *domain.Order) pagination.Cursor {
		return pagination.NewCursor(o.ID.Int64(), o.CreatedAt)
	})
	orders := make([]domain.Order, 0, len(items))
	for _, item := range items {
		orders = append(orders, *item)
	}
	return orders, info, nil
}
