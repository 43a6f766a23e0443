package service

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/catalog/domain"
	"github.com/smallbiznis/giftflow/internal/clock"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
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
	Clock      clock.Clock `optional:"true"`
	StoreCfg   db.Config   `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	tenantRepo tenantdomain.Repository
	clock      clock.Clock
	timeout    time.Duration
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("catalog.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		tenantRepo: p.TenantRepo,
		clock:      c,
		timeout:    p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateProductRequest) (domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}
	if req.PointCost < 0 {
		return domain.Product{}, domain.ErrInvalidPointCost
	}
	if req.Stock != nil && *req.Stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}
	imageURL, err := normalizeImageURL(req.ImageURL)
	if err != nil {
		return domain.Product{}, err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	product := domain.Product{
		ID:          s.genID.Generate(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		PointCost:   req.PointCost,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    imageURL,
		Active:      active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Insert(ctx, s.db, &product); err != nil {
		return domain.Product{}, db.Classify(err)
	}

	s.log.Info("product created",
		zap.String("product_id", product.ID.String()),
		zap.Int64("point_cost", product.PointCost),
	)
	return product, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateProductRequest) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, db.Classify(err)
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, domain.ErrInvalidName
		}
		product.Name = name
	}
	if req.Description != nil {
		product.Description = strings.TrimSpace(*req.Description)
	}
	if req.PointCost != nil {
		if *req.PointCost < 0 {
			return domain.Product{}, domain.ErrInvalidPointCost
		}
		product.PointCost = *req.PointCost
	}
	if req.Category != nil {
		product.Category = strings.TrimSpace(*req.Category)
	}
	if req.ImageURL != nil {
		imageURL, err := normalizeImageURL(*req.ImageURL)
		if err != nil {
			return domain.Product{}, err
		}
		product.ImageURL = imageURL
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	product.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, db.Classify(err)
	}
	return *product, nil
}

func (s *Service) SetStock(ctx context.Context, id snowflake.ID, stock *int64) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}
	if stock != nil && *stock < 0 {
		return domain.Product{}, domain.ErrInvalidStock
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, db.Classify(err)
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	product.Stock = stock
	product.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return domain.Product{}, db.Classify(err)
	}
	return *product, nil
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if id == 0 {
		return domain.ErrInvalidID
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	deleted, err := s.repo.SoftDelete(ctx, s.db, id)
	if err != nil {
		return db.Classify(err)
	}
	if !deleted {
		return domain.ErrNotFound
	}
	s.log.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.ErrInvalidID
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, db.Classify(err)
	}
	if product == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *product, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListProductFilter) ([]domain.Product, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter.Category = strings.TrimSpace(filter.Category)
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, db.Classify(err)
	}
	return deref(items), nil
}

func (s *Service) ListVisibleProducts(ctx context.Context, tenantID snowflake.ID) ([]domain.Product, error) {
	if tenantID == 0 {
		return nil, tenantdomain.ErrNotFound
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, db.Classify(err)
	}
	if tenant == nil {
		return nil, tenantdomain.ErrNotFound
	}

	items, err := s.repo.ListVisible(ctx, s.db, tenantID)
	if err != nil {
		return nil, db.Classify(err)
	}
	return deref(items), nil
}

func deref(items []*domain.Product) []domain.Product {
	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}
	return products
}

func normalizeImageURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", domain.ErrInvalidImageURL
	}
	return parsed.String(), nil
}
