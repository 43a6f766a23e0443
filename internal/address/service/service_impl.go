package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/address/domain"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Clock    clock.Clock `optional:"true"`
	StoreCfg db.Config   `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
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
		log:     p.Log.Named("address.service"),
		repo:    p.Repo,
		clock:   c,
		timeout: p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Get(ctx context.Context, tenantID, employeeID snowflake.ID) (domain.ShippingAddress, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	saved, err := s.repo.Find(ctx, s.db, tenantID, employeeID)
	if err != nil {
		return domain.ShippingAddress{}, db.Classify(err)
	}
	if saved == nil {
		return domain.ShippingAddress{}, domain.ErrNotFound
	}
	return saved.Address.Data(), nil
}

func (s *Service) Save(ctx context.Context, tenantID, employeeID snowflake.ID, addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	addr, err := Validate(addr)
	if err != nil {
		return domain.ShippingAddress{}, err
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.upsert(ctx, s.db, tenantID, employeeID, addr); err != nil {
		return domain.ShippingAddress{}, db.Classify(err)
	}
	return addr, nil
}

func (s *Service) UpsertTx(ctx context.Context, tx *gorm.DB, tenantID, employeeID snowflake.ID, addr domain.ShippingAddress) error {
	addr, err := Validate(addr)
	if err != nil {
		return err
	}
	return s.upsert(ctx, tx, tenantID, employeeID, addr)
}

func (s *Service) upsert(ctx context.Context, conn *gorm.DB, tenantID, employeeID snowflake.ID, addr domain.ShippingAddress) error {
	return s.repo.Upsert(ctx, conn, &domain.SavedAddress{
		EmployeeID: employeeID,
		TenantID:   tenantID,
		Address:    datatypes.NewJSONType(addr),
		UpdatedAt:  s.clock.Now(),
	})
}

// Validate normalizes addr and checks the required fields.
func Validate(addr domain.ShippingAddress) (domain.ShippingAddress, error) {
	addr = addr.Normalize()
	if !addr.Complete() {
		return domain.ShippingAddress{}, domain.ErrIncompleteAddress
	}
	if addr.CountryCode != "" && !isCountryCode(addr.CountryCode) {
		return domain.ShippingAddress{}, domain.ErrInvalidCountry
	}
	return addr, nil
}

func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
