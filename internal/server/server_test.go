package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	addressrepo "github.com/smallbiznis/giftflow/internal/address/repository"
	addressservice "github.com/smallbiznis/giftflow/internal/address/service"
	"github.com/smallbiznis/giftflow/internal/authorization"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	catalogrepo "github.com/smallbiznis/giftflow/internal/catalog/repository"
	catalogservice "github.com/smallbiznis/giftflow/internal/catalog/service"
	checkoutdomain "github.com/smallbiznis/giftflow/internal/checkout/domain"
	checkoutservice "github.com/smallbiznis/giftflow/internal/checkout/service"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/dbtest"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	employeerepo "github.com/smallbiznis/giftflow/internal/employee/repository"
	employeeservice "github.com/smallbiznis/giftflow/internal/employee/service"
	"github.com/smallbiznis/giftflow/internal/identity"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/giftflow/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/giftflow/internal/ledger/service"
	"github.com/smallbiznis/giftflow/internal/observability"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	orderrepo "github.com/smallbiznis/giftflow/internal/order/repository"
	orderservice "github.com/smallbiznis/giftflow/internal/order/service"
	"github.com/smallbiznis/giftflow/internal/principal"
	"github.com/smallbiznis/giftflow/internal/reference"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	"github.com/smallbiznis/giftflow/internal/seed"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	tenantrepo "github.com/smallbiznis/giftflow/internal/tenant/repository"
	tenantservice "github.com/smallbiznis/giftflow/internal/tenant/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine *gin.Engine
	tokens map[string]principal.Principal
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		&referencedomain.Country{},
	)
	require.NoError(t, seed.EnsureCountries(conn))

	node := dbtest.Node(t)
	log := zap.NewNop()
	storefront := config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig())

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)

	ledger := ledgerservice.New(ledgerservice.Params{DB: conn, Log: log, GenID: node, Repo: ledgerrepo.Provide(), StorefrontCfg: storefront})
	address := addressservice.New(addressservice.Params{DB: conn, Log: log, Repo: addressrepo.Provide()})
	tenants := tenantservice.New(tenantservice.Params{DB: conn, Log: log, GenID: node, Repo: tenantrepo.Provide(), CatalogRepo: catalogrepo.Provide()})

	tokens := map[string]principal.Principal{
		"ops": {Subject: "ops", Email: "ops@giftflow.test", Role: principal.RoleGiftingAdmin},
		"hr":  {Subject: "hr", Email: "hr@acme.test", Role: principal.RoleTenantAdmin},
	}

	engine := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{},
		Log:      log,
		Verifier: identity.NewStaticVerifier(tokens),
		AuthzSvc: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		CatalogSvc: catalogservice.New(catalogservice.Params{
			DB: conn, Log: log, GenID: node, Repo: catalogrepo.Provide(), TenantRepo: tenantrepo.Provide(),
		}),
		TenantSvc: tenants,
		EmployeeSvc: employeeservice.New(employeeservice.Params{
			DB: conn, Log: log, GenID: node, Repo: employeerepo.Provide(), Ledger: ledger, StorefrontCfg: storefront,
		}),
		LedgerSvc:  ledger,
		AddressSvc: address,
		OrderSvc: orderservice.New(orderservice.Params{
			DB: conn, Log: log, GenID: node, Repo: orderrepo.Provide(), TenantRepo: tenantrepo.Provide(),
		}),
		CheckoutSvc: checkoutservice.New(checkoutservice.Params{
			DB:            conn,
			Log:           log,
			GenID:         node,
			Ledger:        ledger,
			Address:       address,
			CatalogRepo:   catalogrepo.Provide(),
			OrderRepo:     orderrepo.Provide(),
			EmployeeRepo:  employeerepo.Provide(),
			TenantRepo:    tenantrepo.Provide(),
			StorefrontCfg: storefront,
		}),
		Refrepo: reference.NewRepository(conn),
	})

	return &testServer{engine: engine, tokens: tokens}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Data
}

func errorType(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var out errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Error.Type
}

var mugAddress = addressdomain.ShippingAddress{
	FullName:     "Ana Lima",
	AddressLine1: "1 Main St",
	City:         "Lisbon",
	CountryCode:  "PT",
}

func TestGiftingFlow(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/admin/products", "ops", gin.H{"name": "Mug", "point_cost": 40, "stock": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mug := decodeData[catalogdomain.Product](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/admin/products", "hr", gin.H{"name": "Pen", "point_cost": 5})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants", "hr", gin.H{"display_name": "Acme Corp", "contact_name": "Hana"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tenant := decodeData[tenantdomain.Tenant](t, rec)
	assert.Equal(t, tenantdomain.StatusPending, tenant.Status)
	assert.Equal(t, "hr@acme.test", tenant.ContactEmail)

	rec = ts.do(t, http.MethodPost, "/api/v1/tenants", "hr", gin.H{"display_name": "Acme Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/storefront/"+tenant.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/tenants/%s/approve", tenant.ID), "ops", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, fmt.Sprintf("/api/v1/tenant/products/%s", mug.ID), "hr", gin.H{"selected": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/storefront/"+tenant.Slug, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	storefront := decodeData[tenantdomain.Storefront](t, rec)
	require.Len(t, storefront.Products, 1)

	rec = ts.do(t, http.MethodPost, "/api/v1/tenant/employees", "hr", gin.H{"email": "ana@acme.test", "name": "Ana", "points": 100})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	employee := decodeData[employeedomain.Employee](t, rec)
	assert.Equal(t, int64(100), employee.PointsBalance)

	ts.tokens["ana"] = principal.Principal{
		Subject:    "ana",
		Email:      "ana@acme.test",
		Role:       principal.RoleEmployee,
		TenantID:   tenant.ID,
		EmployeeID: employee.ID,
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/me/catalog", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeData[[]catalogdomain.Product](t, rec), 1)

	checkout := gin.H{
		"lines":            []gin.H{{"product_id": mug.ID.String(), "quantity": 2}},
		"shipping_address": mugAddress,
	}
	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", checkout, headerIdempotencyKey, "cart-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeData[orderdomain.Order](t, rec)
	assert.Equal(t, int64(80), order.TotalPoints)
	assert.Equal(t, orderdomain.StatusPending, order.Status)

	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", checkout, headerIdempotencyKey, "cart-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, order.ID, decodeData[orderdomain.Order](t, rec).ID)

	one := gin.H{
		"lines":            []gin.H{{"product_id": mug.ID.String(), "quantity": 1}},
		"shipping_address": mugAddress,
	}
	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", one, headerIdempotencyKey, "cart-2")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient_funds", errorType(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/me", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decodeData[meResponse](t, rec)
	assert.Equal(t, int64(20), me.Balance.Points)

	rec = ts.do(t, http.MethodGet, "/api/v1/me/orders", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]orderdomain.Order](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/tenant/orders", "hr", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]orderdomain.Order](t, rec), 1)

	orderPath := fmt.Sprintf("/api/v1/admin/orders/%s", order.ID)
	rec = ts.do(t, http.MethodPatch, orderPath+"/status", "ops", gin.H{"status": "shipped"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_transition", errorType(t, rec))

	rec = ts.do(t, http.MethodPatch, orderPath+"/status", "ops", gin.H{"status": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, orderPath, "ops", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeData[struct {
		Status  orderdomain.Status        `json:"status"`
		History []orderdomain.StatusEvent `json:"history"`
	}](t, rec)
	assert.Equal(t, orderdomain.StatusProcessing, detail.Status)
	assert.NotEmpty(t, detail.History)

	rec = ts.do(t, http.MethodGet, orderPath, "ana", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, orderPath+"/packing-slip", "ops", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errorType(t, rec))

	rec = ts.do(t, http.MethodGet, "/api/v1/me", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/me", "hr", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/tenant", "hr", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutValidation(t *testing.T) {
	ts := newTestServer(t)
	ts.tokens["ana"] = principal.Principal{Subject: "ana", Role: principal.RoleEmployee, TenantID: snowflake.ID(1), EmployeeID: snowflake.ID(2)}

	rec := ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", gin.H{"shipping_address": mugAddress})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "empty_cart", errorType(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", gin.H{
		"lines":            []gin.H{{"product_id": "7", "quantity": 0}},
		"shipping_address": mugAddress,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorType(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", gin.H{
		"lines":            []gin.H{{"product_id": "7", "quantity": int64(1) << 62}},
		"shipping_address": mugAddress,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorType(t, rec))

	rec = ts.do(t, http.MethodPost, "/api/v1/me/checkout", "ana", gin.H{
		"lines": []gin.H{{"product_id": "7", "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "incomplete_address", errorType(t, rec))
}

func TestReferenceRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/reference/countries", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	countries := decodeData[[]referencedomain.Country](t, rec)
	assert.NotEmpty(t, countries)

	rec = ts.do(t, http.MethodGet, "/api/v1/reference/country-suggestion", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":null}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/v1/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{ledgerdomain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
		{checkoutdomain.ErrTotalOverflow, http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("place: %w", addressdomain.ErrIncompleteAddress), http.StatusUnprocessableEntity, "incomplete_address"},
		{tenantdomain.ErrTenantNotApproved, http.StatusUnprocessableEntity, "tenant_not_approved"},
		{catalogdomain.ErrInvalidPointCost, http.StatusBadRequest, "validation_error"},
		{employeedomain.ErrDuplicateEmail, http.StatusConflict, "conflict"},
		{orderdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{identity.ErrUnauthenticated, http.StatusUnauthorized, "unauthorized"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, payload := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.kind, payload.Type, tc.err.Error())
	}
}
