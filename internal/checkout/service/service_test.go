package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	addressrepo "github.com/smallbiznis/giftflow/internal/address/repository"
	addressservice "github.com/smallbiznis/giftflow/internal/address/service"
	"github.com/smallbiznis/giftflow/internal/cart"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/giftflow/internal/catalog/repository"
	"github.com/smallbiznis/giftflow/internal/checkout/domain"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/dbtest"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	employeerepo "github.com/smallbiznis/giftflow/internal/employee/repository"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/giftflow/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/giftflow/internal/ledger/service"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	orderrepo "github.com/smallbiznis/giftflow/internal/order/repository"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/giftflow/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	return nil
}

func (m *recordingMailer) SendTemplate(ctx context.Context, to []string, templateName string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, templateName)
	return nil
}

// failingOrders rejects every order insert after the debit has run.
type failingOrders struct {
	orderdomain.Repository
}

func (failingOrders) Insert(ctx context.Context, db *gorm.DB, order *orderdomain.Order) error {
	return errors.New("disk full")
}

type fixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clock    *clock.FakeClock
	mailer   *recordingMailer
	tenantID snowflake.ID
	svc      domain.Service
}

func newFixture(t *testing.T, orders orderdomain.Repository) *fixture {
	t.Helper()
	conn := dbtest.Open(t,
		&tenantdomain.Tenant{},
		&employeedomain.Employee{},
		&catalogdomain.Product{},
		&catalogdomain.TenantProduct{},
		&ledgerdomain.Entry{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&orderdomain.StatusEvent{},
		&orderdomain.CheckoutRequest{},
		&addressdomain.SavedAddress{},
	)
	node := dbtest.Node(t)
	fake := clock.NewFakeClock(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))
	storefront := config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig())
	if orders == nil {
		orders = orderrepo.Provide()
	}

	ledger := ledgerservice.New(ledgerservice.Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          ledgerrepo.Provide(),
		StorefrontCfg: storefront,
		Clock:         fake,
	})
	address := addressservice.New(addressservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		Repo:  addressrepo.Provide(),
		Clock: fake,
	})
	mailer := &recordingMailer{}
	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Ledger:        ledger,
		Address:       address,
		CatalogRepo:   catalogrepo.Provide(),
		OrderRepo:     orders,
		EmployeeRepo:  employeerepo.Provide(),
		TenantRepo:    tenantrepo.Provide(),
		Email:         mailer,
		StorefrontCfg: storefront,
		Clock:         fake,
	})

	f := &fixture{db: conn, node: node, clock: fake, mailer: mailer, svc: svc}
	f.tenantID = f.tenant(t, tenantdomain.StatusApproved)
	return f
}

func (f *fixture) tenant(t *testing.T, status tenantdomain.Status) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&tenantdomain.Tenant{
		ID:           id,
		DisplayName:  "Acme",
		ContactEmail: "hr@acme.test",
		OwnerSubject: "owner-" + id.String(),
		Slug:         "acme-" + id.String(),
		Status:       status,
		Branding:     datatypes.NewJSONType(tenantdomain.DefaultBranding()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error)
	return id
}

func (f *fixture) employee(t *testing.T, balance int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&employeedomain.Employee{
		ID:            id,
		TenantID:      f.tenantID,
		Email:         id.String() + "@acme.test",
		Name:          "Ana",
		PointsBalance: balance,
		Status:        employeedomain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}).Error)
	return id
}

func (f *fixture) product(t *testing.T, cost int64, stock *int64) catalogdomain.Product {
	t.Helper()
	now := f.clock.Now()
	p := catalogdomain.Product{
		ID:        f.node.Generate(),
		Name:      "Mug",
		PointCost: cost,
		Stock:     stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&p).Error)
	require.NoError(t, f.db.Create(&catalogdomain.TenantProduct{
		TenantID: f.tenantID, ProductID: p.ID, CreatedAt: now,
	}).Error)
	return p
}

func (f *fixture) balance(t *testing.T, employeeID snowflake.ID) int64 {
	t.Helper()
	var e employeedomain.Employee
	require.NoError(t, f.db.First(&e, "id = ?", employeeID).Error)
	return e.PointsBalance
}

func (f *fixture) stock(t *testing.T, productID snowflake.ID) int64 {
	t.Helper()
	var p catalogdomain.Product
	require.NoError(t, f.db.Unscoped().First(&p, "id = ?", productID).Error)
	require.NotNil(t, p.Stock)
	return *p.Stock
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *fixture) request(employeeID snowflake.ID, c *cart.Cart) domain.Request {
	return domain.Request{
		TenantID:   f.tenantID,
		EmployeeID: employeeID,
		Cart:       c,
		ShippingAddress: addressdomain.ShippingAddress{
			FullName:     "Ana Silva",
			Phone:        "912345678",
			CountryCode:  "PT",
			AddressLine1: "Rua Augusta 1",
			City:         "Lisbon",
			ZipCode:      "1100-048",
			Country:      "Portugal",
		},
	}
}

func cartOf(p catalogdomain.Product, qty int64) *cart.Cart {
	c := cart.New()
	c.AddQuantity(p, qty)
	return c
}

func stockOf(n int64) *int64 { return &n }

func TestCheckoutDebitsAndRecordsOrder(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, stockOf(5))
	emp := f.employee(t, 100)

	order, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 2)))
	require.NoError(t, err)

	assert.Equal(t, int64(60), order.TotalPoints)
	assert.Equal(t, orderdomain.StatusPending, order.Status)
	assert.Equal(t, "Ana", order.EmployeeName)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(30), order.Items[0].UnitCost)
	assert.Equal(t, int64(60), order.Items[0].LineTotal)
	assert.Equal(t, int64(40), f.balance(t, emp))
	assert.Equal(t, int64(3), f.stock(t, p1.ID))

	var entry ledgerdomain.Entry
	require.NoError(t, f.db.First(&entry, "employee_id = ? AND source_type = ?", emp, ledgerdomain.SourceTypeOrder).Error)
	assert.Equal(t, order.ID.String(), entry.SourceID)
	assert.Equal(t, int64(40), entry.BalanceAfter)
	assert.Equal(t, []string{"order_placed"}, f.mailer.sent)
}

func TestCheckoutInsufficientFunds(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, stockOf(5))
	emp := f.employee(t, 50)

	_, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 2)))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, int64(50), f.balance(t, emp))
	assert.Equal(t, int64(5), f.stock(t, p1.ID))
	assert.Zero(t, f.count(t, &orderdomain.Order{}))
	assert.Empty(t, f.mailer.sent)
}

func TestCheckoutCatalogMismatch(t *testing.T) {
	t.Run("deactivated after add", func(t *testing.T) {
		f := newFixture(t, nil)
		p1 := f.product(t, 30, nil)
		emp := f.employee(t, 100)
		c := cartOf(p1, 1)
		require.NoError(t, f.db.Model(&catalogdomain.Product{}).Where("id = ?", p1.ID).Update("active", false).Error)

		_, err := f.svc.Checkout(context.Background(), f.request(emp, c))
		require.ErrorIs(t, err, domain.ErrCatalogMismatch)

		var mismatch *domain.CatalogMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, p1.ID, mismatch.ProductID)
		assert.Equal(t, domain.ReasonInactive, mismatch.Reason)
		assert.Equal(t, int64(100), f.balance(t, emp))
		assert.Zero(t, f.count(t, &ledgerdomain.Entry{}))
	})

	t.Run("deselected by tenant", func(t *testing.T) {
		f := newFixture(t, nil)
		p1 := f.product(t, 30, nil)
		emp := f.employee(t, 100)
		require.NoError(t, f.db.Where("product_id = ?", p1.ID).Delete(&catalogdomain.TenantProduct{}).Error)

		_, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 1)))
		var mismatch *domain.CatalogMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, domain.ReasonUnavailable, mismatch.Reason)
	})

	t.Run("stock ran out", func(t *testing.T) {
		f := newFixture(t, nil)
		p1 := f.product(t, 10, stockOf(1))
		p2 := f.product(t, 10, stockOf(0))
		emp := f.employee(t, 100)

		c := cartOf(p1, 2)
		_, err := f.svc.Checkout(context.Background(), f.request(emp, c))
		var mismatch *domain.CatalogMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, domain.ReasonInsufficientStock, mismatch.Reason)

		_, err = f.svc.Checkout(context.Background(), f.request(emp, cartOf(p2, 1)))
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, domain.ReasonOutOfStock, mismatch.Reason)
		assert.Equal(t, int64(100), f.balance(t, emp))
	})
}

func TestCheckoutUsesCatalogPrice(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, nil)
	emp := f.employee(t, 100)

	stale := p1
	stale.PointCost = 1
	order, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(stale, 2)))
	require.NoError(t, err)
	assert.Equal(t, int64(60), order.TotalPoints)
	assert.Equal(t, int64(40), f.balance(t, emp))
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, nil)
	emp := f.employee(t, 100)

	_, err := f.svc.Checkout(context.Background(), f.request(emp, cart.New()))
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	req := f.request(emp, cartOf(p1, 1))
	req.ShippingAddress.City = ""
	_, err = f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrIncompleteAddress)

	require.NoError(t, f.db.Model(&employeedomain.Employee{}).Where("id = ?", emp).Update("status", employeedomain.StatusInactive).Error)
	_, err = f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 1)))
	assert.ErrorIs(t, err, domain.ErrEmployeeInactive)

	_, err = f.svc.Checkout(context.Background(), f.request(f.node.Generate(), cartOf(p1, 1)))
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	assert.Zero(t, f.count(t, &orderdomain.Order{}))
}

func TestCheckoutRequiresApprovedTenant(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, nil)
	emp := f.employee(t, 100)
	require.NoError(t, f.db.Model(&tenantdomain.Tenant{}).Where("id = ?", f.tenantID).Update("status", tenantdomain.StatusPending).Error)

	_, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 1)))
	assert.ErrorIs(t, err, domain.ErrTenantNotApproved)
	assert.Equal(t, int64(100), f.balance(t, emp))
}

func TestCheckoutZeroTotal(t *testing.T) {
	f := newFixture(t, nil)
	free := f.product(t, 0, nil)
	emp := f.employee(t, 0)

	order, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(free, 1)))
	require.NoError(t, err)
	assert.Zero(t, order.TotalPoints)
	assert.Zero(t, f.balance(t, emp))
	assert.Zero(t, f.count(t, &ledgerdomain.Entry{}))
	assert.Equal(t, int64(1), f.count(t, &orderdomain.Order{}))
}

func TestCheckoutRejectsOverflowingTotal(t *testing.T) {
	f := newFixture(t, nil)
	cheap := f.product(t, 50, nil)
	huge := f.product(t, math.MaxInt64/2, nil)
	emp := f.employee(t, 10)

	t.Run("line cost", func(t *testing.T) {
		c := cartOf(cheap, 1)
		c.AddQuantity(huge, 3)
		_, err := f.svc.Checkout(context.Background(), f.request(emp, c))
		assert.ErrorIs(t, err, domain.ErrTotalOverflow)
	})

	t.Run("sum of lines", func(t *testing.T) {
		other := f.product(t, math.MaxInt64/2, nil)
		c := cartOf(huge, 1)
		c.AddQuantity(other, 1)
		c.AddQuantity(cheap, 1)
		_, err := f.svc.Checkout(context.Background(), f.request(emp, c))
		assert.ErrorIs(t, err, domain.ErrTotalOverflow)
	})

	t.Run("quantity is capped per line", func(t *testing.T) {
		free := f.product(t, 2, nil)
		_, err := cart.FromLines([]cart.LineInput{
			{ProductID: cheap.ID, Quantity: 1},
			{ProductID: free.ID, Quantity: 1 << 62},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	assert.Equal(t, int64(10), f.balance(t, emp))
	assert.Zero(t, f.count(t, &ledgerdomain.Entry{}))
	assert.Zero(t, f.count(t, &orderdomain.Order{}))
}

func TestCheckoutIsAtomic(t *testing.T) {
	f := newFixture(t, failingOrders{Repository: orderrepo.Provide()})
	p1 := f.product(t, 30, stockOf(5))
	emp := f.employee(t, 100)

	_, err := f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 2)))
	require.Error(t, err)

	assert.Equal(t, int64(100), f.balance(t, emp))
	assert.Equal(t, int64(5), f.stock(t, p1.ID))
	assert.Zero(t, f.count(t, &ledgerdomain.Entry{}))
	assert.Zero(t, f.count(t, &orderdomain.Order{}))
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 30, nil)
	emp := f.employee(t, 100)

	req := f.request(emp, cartOf(p1, 1))
	req.IdempotencyKey = "cart-7"
	first, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	second, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(70), f.balance(t, emp))
	assert.Equal(t, int64(1), f.count(t, &orderdomain.Order{}))
	assert.Len(t, f.mailer.sent, 1)

	req.IdempotencyKey = "cart-8"
	third, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, int64(40), f.balance(t, emp))

	req.IdempotencyKey = strings.Repeat("k", domain.MaxIdempotencyKeyLength+1)
	_, err = f.svc.Checkout(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidIdempotencyKey)
}

func TestCheckoutConcurrentSpend(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 80, nil)
	emp := f.employee(t, 100)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(context.Background(), f.request(emp, cartOf(p1, 1)))
		}(i)
	}
	wg.Wait()

	var ok, denied int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrInsufficientFunds):
			denied++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, denied)
	assert.Equal(t, int64(20), f.balance(t, emp))
	assert.Equal(t, int64(1), f.count(t, &orderdomain.Order{}))
}

func TestCheckoutSavesAddress(t *testing.T) {
	f := newFixture(t, nil)
	p1 := f.product(t, 10, nil)
	emp := f.employee(t, 100)

	req := f.request(emp, cartOf(p1, 1))
	req.SaveAddress = true
	_, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	var saved addressdomain.SavedAddress
	require.NoError(t, f.db.First(&saved, "employee_id = ?", emp).Error)
	assert.Equal(t, "Lisbon", saved.Address.Data().City)
}
