package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/internal/observability/metrics"
	"github.com/smallbiznis/giftflow/pkg/db"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// errDuplicateReference rolls back a credit whose reference was claimed by a
// concurrent writer.
var errDuplicateReference = errors.New("duplicate ledger reference")

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	StorefrontCfg *config.StorefrontConfigHolder `optional:"true"`
	Metrics       *metrics.Metrics               `optional:"true"`
	Clock         clock.Clock                    `optional:"true"`
	StoreCfg      db.Config                      `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	cfg     *config.StorefrontConfigHolder
	metrics *metrics.Metrics
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
		log:     p.Log.Named("ledger.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		cfg:     p.StorefrontCfg,
		metrics: p.Metrics,
		clock:   c,
		timeout: p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Debit(ctx context.Context, req domain.DebitRequest) (domain.Balance, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	var balance domain.Balance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.DebitTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return domain.Balance{}, db.Classify(err)
	}
	s.metrics.RecordLedgerMutation(ctx, string(domain.DirectionDebit), string(req.SourceType))
	return balance, nil
}

func (s *Service) DebitTx(ctx context.Context, tx *gorm.DB, req domain.DebitRequest) (domain.Balance, error) {
	if req.Amount <= 0 {
		return domain.Balance{}, domain.ErrInvalidAmount
	}
	sourceID := strings.TrimSpace(req.SourceID)
	if !req.SourceType.Valid() || sourceID == "" {
		return domain.Balance{}, domain.ErrInvalidSource
	}

	acct, err := s.swap(ctx, tx, req.TenantID, req.EmployeeID, -req.Amount)
	if err != nil {
		return domain.Balance{}, err
	}

	entry := domain.Entry{
		ID:           s.genID.Generate(),
		TenantID:     req.TenantID,
		EmployeeID:   req.EmployeeID,
		Direction:    domain.DirectionDebit,
		Amount:       req.Amount,
		BalanceAfter: acct.Balance,
		SourceType:   req.SourceType,
		SourceID:     sourceID,
		Note:         strings.TrimSpace(req.Note),
		CreatedAt:    s.clock.Now(),
	}
	inserted, err := s.repo.InsertEntry(ctx, tx, &entry)
	if err != nil {
		return domain.Balance{}, err
	}
	if !inserted {
		return domain.Balance{}, domain.ErrInvalidSource
	}

	s.log.Debug("points debited",
		zap.String("employee_id", req.EmployeeID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance_after", acct.Balance),
		zap.String("source_type", string(req.SourceType)),
	)
	return acct.Snapshot(), nil
}

func (s *Service) Credit(ctx context.Context, req domain.CreditRequest) (domain.Balance, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	var balance domain.Balance
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.CreditTx(ctx, tx, req)
		return err
	})
	if errors.Is(err, errDuplicateReference) {
		return s.GetBalance(ctx, req.TenantID, req.EmployeeID)
	}
	if err != nil {
		return domain.Balance{}, db.Classify(err)
	}
	s.metrics.RecordLedgerMutation(ctx, string(domain.DirectionCredit), string(req.SourceType))
	return balance, nil
}

func (s *Service) CreditTx(ctx context.Context, tx *gorm.DB, req domain.CreditRequest) (domain.Balance, error) {
	if req.Amount <= 0 {
		return domain.Balance{}, domain.ErrInvalidAmount
	}
	if !req.SourceType.Valid() {
		return domain.Balance{}, domain.ErrInvalidSource
	}

	sourceID := strings.TrimSpace(req.ReferenceID)
	if sourceID != "" {
		existing, err := s.repo.FindEntry(ctx, tx, req.EmployeeID, req.SourceType, sourceID)
		if err != nil {
			return domain.Balance{}, err
		}
		if existing != nil {
			acct, err := s.account(ctx, tx, req.TenantID, req.EmployeeID)
			if err != nil {
				return domain.Balance{}, err
			}
			return acct.Snapshot(), nil
		}
	}

	entryID := s.genID.Generate()
	if sourceID == "" {
		sourceID = entryID.String()
	}

	acct, err := s.swap(ctx, tx, req.TenantID, req.EmployeeID, req.Amount)
	if err != nil {
		return domain.Balance{}, err
	}

	entry := domain.Entry{
		ID:           entryID,
		TenantID:     req.TenantID,
		EmployeeID:   req.EmployeeID,
		Direction:    domain.DirectionCredit,
		Amount:       req.Amount,
		BalanceAfter: acct.Balance,
		SourceType:   req.SourceType,
		SourceID:     sourceID,
		Note:         strings.TrimSpace(req.Note),
		CreatedAt:    s.clock.Now(),
	}
	inserted, err := s.repo.InsertEntry(ctx, tx, &entry)
	if err != nil {
		return domain.Balance{}, err
	}
	if !inserted {
		return domain.Balance{}, errDuplicateReference
	}

	s.log.Debug("points credited",
		zap.String("employee_id", req.EmployeeID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("balance_after", acct.Balance),
		zap.String("source_type", string(req.SourceType)),
	)
	return acct.Snapshot(), nil
}

func (s *Service) GetBalance(ctx context.Context, tenantID, employeeID snowflake.ID) (domain.Balance, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	acct, err := s.account(ctx, s.db, tenantID, employeeID)
	if err != nil {
		return domain.Balance{}, db.Classify(err)
	}
	return acct.Snapshot(), nil
}

func (s *Service) ListEntries(ctx context.Context, tenantID, employeeID snowflake.ID, page pagination.Pagination) ([]domain.Entry, pagination.PageInfo, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.account(ctx, s.db, tenantID, employeeID); err != nil {
		return nil, pagination.PageInfo{}, db.Classify(err)
	}

	items, err := s.repo.ListEntries(ctx, s.db, tenantID, employeeID, page)
	if err != nil {
		return nil, pagination.PageInfo{}, db.Classify(err)
	}
	items, info := pagination.BuildCursorPageInfo(items, page.Limit(), func(e *domain.Entry) pagination.Cursor {
		return pagination.NewCursor(e.ID.Int64(), e.CreatedAt)
	})

	entries := make([]domain.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, *item)
	}
	return entries, info, nil
}

// swap applies delta with an optimistic compare-and-swap on the employee's
// version, re-reading and retrying when another writer wins.
func (s *Service) swap(ctx context.Context, tx *gorm.DB, tenantID, employeeID snowflake.ID, delta int64) (domain.Account, error) {
	tun := s.tunables()
	for attempt := 1; attempt <= tun.MaxCASAttempts; attempt++ {
		acct, err := s.account(ctx, tx, tenantID, employeeID)
		if err != nil {
			return domain.Account{}, err
		}

		// Compare against the headroom rather than the sum so a large delta
		// cannot wrap.
		if delta < 0 && acct.Balance < -delta {
			return domain.Account{}, domain.ErrInsufficientFunds
		}
		if delta > 0 && delta > tun.MaxBalance-acct.Balance {
			return domain.Account{}, domain.ErrBalanceOverflow
		}
		next := acct.Balance + delta

		swapped, err := s.repo.CompareAndSwap(ctx, tx, acct, next, s.clock.Now())
		if err != nil {
			return domain.Account{}, err
		}
		if swapped {
			acct.Balance = next
			acct.Version++
			return acct, nil
		}

		s.log.Debug("balance compare-and-swap lost",
			zap.String("employee_id", employeeID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return domain.Account{}, domain.ErrConcurrentModification
}

func (s *Service) account(ctx context.Context, conn *gorm.DB, tenantID, employeeID snowflake.ID) (domain.Account, error) {
	if tenantID == 0 || employeeID == 0 {
		return domain.Account{}, domain.ErrEmployeeNotFound
	}
	acct, err := s.repo.FindAccount(ctx, conn, tenantID, employeeID)
	if err != nil {
		return domain.Account{}, err
	}
	if acct == nil {
		return domain.Account{}, domain.ErrEmployeeNotFound
	}
	return *acct, nil
}

func (s *Service) tunables() config.StorefrontConfig {
	return s.cfg.Get()
}
