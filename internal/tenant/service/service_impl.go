package service

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/observability/metrics"
	"github.com/smallbiznis/giftflow/internal/providers/email"
	"github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/smallbiznis/giftflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxSlugAttempts = 20

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CatalogRepo catalogdomain.Repository
	Email       email.Provider   `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
	Cfg         config.Config    `optional:"true"`
	Clock       clock.Clock      `optional:"true"`
	StoreCfg    db.Config        `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	catalogRepo catalogdomain.Repository
	email       email.Provider
	metrics     *metrics.Metrics
	publicURL   string
	clock       clock.Clock
	timeout     time.Duration
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
		db:          p.DB,
		log:         p.Log.Named("tenant.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		catalogRepo: p.CatalogRepo,
		email:       mailer,
		metrics:     p.Metrics,
		publicURL:   p.Cfg.PublicURL,
		clock:       c,
		timeout:     p.StoreCfg.OperationTimeout,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.Tenant, error) {
	owner := strings.TrimSpace(req.OwnerSubject)
	if owner == "" {
		return domain.Tenant{}, domain.ErrInvalidOwner
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return domain.Tenant{}, domain.ErrInvalidName
	}
	contactEmail, err := normalizeEmail(req.ContactEmail)
	if err != nil {
		return domain.Tenant{}, err
	}
	base := slug.Make(name)
	if base == "" {
		return domain.Tenant{}, domain.ErrInvalidName
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	existing, err := s.repo.FindByOwner(ctx, s.db, owner)
	if err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	if existing != nil {
		return domain.Tenant{}, domain.ErrAlreadyRegistered
	}

	now := s.clock.Now()
	tenant := domain.Tenant{
		ID:           s.genID.Generate(),
		DisplayName:  name,
		ContactName:  strings.TrimSpace(req.ContactName),
		ContactEmail: contactEmail,
		OwnerSubject: owner,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tenant.Branding = newBranding(domain.DefaultBranding())

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		candidate := base
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d", base, attempt)
		}
		taken, err := s.repo.SlugExists(ctx, s.db, candidate)
		if err != nil {
			return domain.Tenant{}, db.Classify(err)
		}
		if taken {
			continue
		}

		tenant.Slug = candidate
		err = s.repo.Insert(ctx, s.db, &tenant)
		if err == nil {
			s.log.Info("tenant registered",
				zap.String("tenant_id", tenant.ID.String()),
				zap.String("slug", tenant.Slug),
			)
			return tenant, nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Tenant{}, db.Classify(err)
		}

		// Either the owner registered concurrently or another tenant took
		// the slug between the check and the insert.
		again, findErr := s.repo.FindByOwner(ctx, s.db, owner)
		if findErr != nil {
			return domain.Tenant{}, db.Classify(findErr)
		}
		if again != nil {
			return domain.Tenant{}, domain.ErrAlreadyRegistered
		}
	}
	return domain.Tenant{}, domain.ErrSlugUnavailable
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Tenant, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.load(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, rawSlug string) (domain.Tenant, error) {
	key := strings.ToLower(strings.TrimSpace(rawSlug))
	if key == "" {
		return domain.Tenant{}, domain.ErrNotFound
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.repo.FindBySlug(ctx, s.db, key)
	if err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return *tenant, nil
}

func (s *Service) GetByOwner(ctx context.Context, ownerSubject string) (domain.Tenant, error) {
	owner := strings.TrimSpace(ownerSubject)
	if owner == "" {
		return domain.Tenant{}, domain.ErrNotFound
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.repo.FindByOwner(ctx, s.db, owner)
	if err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return *tenant, nil
}

func (s *Service) List(ctx context.Context, status domain.Status) ([]domain.Tenant, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.repo.List(ctx, s.db, status)
	if err != nil {
		return nil, db.Classify(err)
	}
	tenants := make([]domain.Tenant, 0, len(items))
	for _, item := range items {
		if item != nil {
			tenants = append(tenants, *item)
		}
	}
	return tenants, nil
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID) (domain.Tenant, error) {
	tenant, err := s.review(ctx, id, domain.StatusApproved, "")
	if err != nil {
		return domain.Tenant{}, err
	}
	s.notify(ctx, tenant, email.TemplateTenantApproved, map[string]any{
		"storefront_url": s.publicURL + "/store/" + tenant.Slug,
	})
	return tenant, nil
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, note string) (domain.Tenant, error) {
	note = strings.TrimSpace(note)
	tenant, err := s.review(ctx, id, domain.StatusRejected, note)
	if err != nil {
		return domain.Tenant{}, err
	}
	s.notify(ctx, tenant, email.TemplateTenantRejected, map[string]any{
		"note": note,
	})
	return tenant, nil
}

func (s *Service) review(ctx context.Context, id snowflake.ID, to domain.Status, note string) (domain.Tenant, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.load(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}
	from := tenant.Status
	if !domain.CanTransition(from, to) {
		return domain.Tenant{}, domain.ErrInvalidTransition
	}

	now := s.clock.Now()
	updated, err := s.repo.UpdateStatus(ctx, s.db, id, from, to, note, now)
	if err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	if !updated {
		return domain.Tenant{}, domain.ErrInvalidTransition
	}

	tenant.Status = to
	tenant.ReviewNote = note
	tenant.ReviewedAt = &now
	tenant.UpdatedAt = now

	s.log.Info("tenant reviewed",
		zap.String("tenant_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return tenant, nil
}

func (s *Service) UpdateBranding(ctx context.Context, id snowflake.ID, req domain.UpdateBrandingRequest) (domain.Tenant, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.load(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	branding := tenant.Branding.Data()
	if req.LogoURL != nil {
		logo := strings.TrimSpace(*req.LogoURL)
		if logo != "" {
			parsed, err := url.Parse(logo)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return domain.Tenant{}, domain.ErrInvalidLogoURL
			}
		}
		branding.LogoURL = logo
	}
	if req.PrimaryColor != nil {
		color, err := normalizeColor(*req.PrimaryColor)
		if err != nil {
			return domain.Tenant{}, err
		}
		branding.PrimaryColor = color
	}
	if req.SecondaryColor != nil {
		color, err := normalizeColor(*req.SecondaryColor)
		if err != nil {
			return domain.Tenant{}, err
		}
		branding.SecondaryColor = color
	}
	if req.Greeting != nil {
		branding.Greeting = strings.TrimSpace(*req.Greeting)
	}
	if req.FestivalGreeting != nil {
		branding.FestivalGreeting = strings.TrimSpace(*req.FestivalGreeting)
	}

	now := s.clock.Now()
	if err := s.repo.UpdateBranding(ctx, s.db, id, branding, now); err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	tenant.Branding = newBranding(branding)
	tenant.UpdatedAt = now
	return tenant, nil
}

func (s *Service) SelectedProductIDs(ctx context.Context, id snowflake.ID) ([]snowflake.ID, error) {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	ids, err := s.catalogRepo.SelectedIDs(ctx, s.db, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	return ids, nil
}

func (s *Service) SetProductSelection(ctx context.Context, id, productID snowflake.ID, selected bool) error {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if !selected {
		return db.Classify(s.catalogRepo.Deselect(ctx, s.db, id, productID))
	}

	product, err := s.catalogRepo.FindByID(ctx, s.db, productID)
	if err != nil {
		return db.Classify(err)
	}
	if product == nil || !product.Active {
		return domain.ErrInvalidProduct
	}
	return db.Classify(s.catalogRepo.Select(ctx, s.db, id, productID, s.clock.Now()))
}

func (s *Service) ReplaceProductSelection(ctx context.Context, id snowflake.ID, productIDs []snowflake.ID) error {
	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	unique := make([]snowflake.ID, 0, len(productIDs))
	seen := make(map[snowflake.ID]struct{}, len(productIDs))
	for _, pid := range productIDs {
		if pid == 0 {
			return domain.ErrInvalidProduct
		}
		if _, ok := seen[pid]; ok {
			continue
		}
		seen[pid] = struct{}{}
		unique = append(unique, pid)
	}

	if len(unique) > 0 {
		products, err := s.catalogRepo.FindByIDs(ctx, s.db, unique)
		if err != nil {
			return db.Classify(err)
		}
		found := 0
		for _, p := range products {
			if p != nil && p.Active {
				found++
			}
		}
		if found != len(unique) {
			return domain.ErrInvalidProduct
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.catalogRepo.ReplaceSelection(ctx, tx, id, unique, s.clock.Now())
	})
	if err != nil {
		return db.Classify(err)
	}
	s.log.Info("tenant selection replaced",
		zap.String("tenant_id", id.String()),
		zap.Int("products", len(unique)),
	)
	return nil
}

func (s *Service) GetStorefront(ctx context.Context, rawSlug string) (domain.Storefront, error) {
	key := strings.ToLower(strings.TrimSpace(rawSlug))
	if key == "" {
		return domain.Storefront{}, domain.ErrNotFound
	}

	ctx, cancel := db.WithTimeout(ctx, s.timeout)
	defer cancel()

	tenant, err := s.GetBySlug(ctx, key)
	if err != nil {
		return domain.Storefront{}, err
	}
	if tenant.Status != domain.StatusApproved {
		return domain.Storefront{}, domain.ErrNotFound
	}

	items, err := s.catalogRepo.ListVisible(ctx, s.db, tenant.ID)
	if err != nil {
		return domain.Storefront{}, db.Classify(err)
	}
	products := make([]catalogdomain.Product, 0, len(items))
	for _, item := range items {
		if item != nil {
			products = append(products, *item)
		}
	}

	return domain.Storefront{
		TenantID:    tenant.ID,
		Slug:        tenant.Slug,
		DisplayName: tenant.DisplayName,
		Branding:    tenant.Branding.Data(),
		Products:    products,
	}, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (domain.Tenant, error) {
	if id == 0 {
		return domain.Tenant{}, domain.ErrNotFound
	}
	tenant, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Tenant{}, db.Classify(err)
	}
	if tenant == nil {
		return domain.Tenant{}, domain.ErrNotFound
	}
	return *tenant, nil
}

// notify sends a review email. Delivery failures are logged and never undo
// the review.
func (s *Service) notify(ctx context.Context, tenant domain.Tenant, template string, extra map[string]any) {
	data := map[string]any{
		"contact_name": tenant.ContactName,
		"display_name": tenant.DisplayName,
	}
	for k, v := range extra {
		data[k] = v
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	outcome := "sent"
	if err := s.email.SendTemplate(sendCtx, []string{tenant.ContactEmail}, template, data); err != nil {
		outcome = "failed"
		s.log.Warn("tenant notification failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("template", template),
			zap.Error(err),
		)
	}
	s.metrics.RecordNotification(ctx, template, outcome)
}

func newBranding(b domain.Branding) datatypes.JSONType[domain.Branding] {
	return datatypes.NewJSONType(b)
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Name != "" {
		return "", domain.ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func normalizeColor(raw string) (string, error) {
	color := strings.TrimSpace(raw)
	if !hexColor.MatchString(color) {
		return "", domain.ErrInvalidColor
	}
	return strings.ToLower(color), nil
}
