package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// initialGrantReference keys the opening credit so it is applied once.
const initialGrantReference = "initial"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Ledger        ledgerdomain.Service
	StorefrontCfg *config.StorefrontConfigHolder `optional:"true"`
	Clock         clock.Clock                    `optional:"true"`
	StoreCfg      db.Config                      `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	ledger  ledgerdomain.Service
	cfg     *config.StorefrontConfigHolder
	clock   clock.Clock
	timeout time.Duration
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("employee.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		ledger:  p.Ledger,
		cfg:     p.StorefrontCfg,
		clock:   c,
		timeout: p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Employee, error) {
	if req.TenantID == 0 {
		return domain.Employee{}, domain.ErrNotFound
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Employee{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Employee{}, domain.ErrInvalidName
	}
	points := s.cfg.Get().DefaultEmployeePoints
	if req.Points != nil {
		points = *req.Points
	}
	if points < 0 {
		return domain.Employee{}, domain.ErrInvalidPoints
	}

	now := s.clock.Now()
	employee := domain.Employee{
		ID:         s.genID.Generate(),
		TenantID:   req.TenantID,
		Email:      email,
		Name:       name,
		Department: strings.TrimSpace(req.Department),
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &employee); err != nil {
			return err
		}
		if points == 0 {
			return nil
		}
		balance, err := s.ledger.CreditTx(ctx, tx, ledgerdomain.CreditRequest{
			TenantID:    employee.TenantID,
			EmployeeID:  employee.ID,
			Amount:      points,
			SourceType:  ledgerdomain.SourceTypeImport,
			ReferenceID: initialGrantReference,
			Note:        "initial allocation",
		})
		if err != nil {
			return err
		}
		employee.PointsBalance = balance.Points
		employee.Version = balance.Version
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Employee{}, domain.ErrDuplicateEmail
		}
		return domain.Employee{}, db.Classify(err)
	}

	s.log.Info("employee created",
		zap.String("tenant_id", employee.TenantID.String()),
		zap.String("employee_id", employee.ID.String()),
		zap.Int64("points", points),
	)
	return employee, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id snowflake.ID) (domain.Employee, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	employee, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return domain.Employee{}, db.Classify(err)
	}
	if employee == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	return *employee, nil
}

func (s *Service) GetByEmail(ctx context.Context, tenantID snowflake.ID, rawEmail string) (domain.Employee, error) {
	email, err := normalizeEmail(rawEmail)
	if err != nil {
		return domain.Employee{}, domain.ErrNotFound
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	employee, err := s.repo.FindByEmail(ctx, s.db, tenantID, email)
	if err != nil {
		return domain.Employee{}, db.Classify(err)
	}
	if employee == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	return *employee, nil
}

func (s *Service) List(ctx context.Context, tenantID snowflake.ID, filter domain.ListFilter) ([]domain.Employee, pagination.PageInfo, error) {
	if filter.Status != "" {
		if _, ok := domain.ParseStatus(string(filter.Status)); !ok {
			return nil, pagination.PageInfo{}, domain.ErrInvalidStatus
		}
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.List(ctx, s.db, tenantID, filter)
	if err != nil {
		return nil, pagination.PageInfo{}, db.Classify(err)
	}
	items, info := pagination.BuildCursorPageInfo(items, filter.Limit(), func(e *domain.Employee) pagination.Cursor {
		return pagination.NewCursor(e.ID.Int64(), e.CreatedAt)
	})

	employees := make([]domain.Employee, 0, len(items))
	for _, item := range items {
		employees = append(employees, *item)
	}
	return employees, info, nil
}

func (s *Service) SetStatus(ctx context.Context, tenantID, id snowflake.ID, status domain.Status) (domain.Employee, error) {
	if _, ok := domain.ParseStatus(string(status)); !ok {
		return domain.Employee{}, domain.ErrInvalidStatus
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	updated, err := s.repo.UpdateStatus(ctx, s.db, tenantID, id, status, s.clock.Now())
	if err != nil {
		return domain.Employee{}, db.Classify(err)
	}
	if !updated {
		return domain.Employee{}, domain.ErrNotFound
	}

	employee, err := s.repo.FindByID(ctx, s.db, tenantID, id)
	if err != nil {
		return domain.Employee{}, db.Classify(err)
	}
	if employee == nil {
		return domain.Employee{}, domain.ErrNotFound
	}
	s.log.Info("employee status changed",
		zap.String("employee_id", id.String()),
		zap.String("status", string(status)),
	)
	return *employee, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id snowflake.ID) error {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.repo.SoftDelete(ctx, s.db, tenantID, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.log.Info("employee deleted", zap.String("employee_id", id.String()))
	return nil
}

func (s *Service) Grant(ctx context.Context, req domain.GrantRequest) (ledgerdomain.Balance, error) {
	if req.Amount <= 0 {
		return ledgerdomain.Balance{}, domain.ErrInvalidPoints
	}
	balance, err := s.ledger.Credit(ctx, ledgerdomain.CreditRequest{
		TenantID:    req.TenantID,
		EmployeeID:  req.EmployeeID,
		Amount:      req.Amount,
		SourceType:  ledgerdomain.SourceTypeGrant,
		ReferenceID: strings.TrimSpace(req.ReferenceID),
		Note:        req.Note,
	})
	if err != nil {
		return ledgerdomain.Balance{}, err
	}
	s.log.Info("points granted",
		zap.String("employee_id", req.EmployeeID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance", balance.Points),
	)
	return balance, nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "@") {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func isRowError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidEmail,
		domain.ErrInvalidName,
		domain.ErrInvalidPoints,
		domain.ErrDuplicateEmail,
		ledgerdomain.ErrBalanceOverflow,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
