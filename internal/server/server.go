package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	addressdomain "github.com/smallbiznis/giftflow/internal/address/domain"
	"github.com/smallbiznis/giftflow/internal/authorization"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	checkoutdomain "github.com/smallbiznis/giftflow/internal/checkout/domain"
	"github.com/smallbiznis/giftflow/internal/config"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	"github.com/smallbiznis/giftflow/internal/geoip"
	"github.com/smallbiznis/giftflow/internal/identity"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	"github.com/smallbiznis/giftflow/internal/observability"
	obsmiddleware "github.com/smallbiznis/giftflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/giftflow/internal/observability/metrics"
	obstracing "github.com/smallbiznis/giftflow/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/giftflow/internal/order/domain"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	verifier identity.Verifier
	authzSvc authorization.Service

	catalogSvc  catalogdomain.Service
	tenantSvc   tenantdomain.Service
	employeeSvc employeedomain.Service
	ledgerSvc   ledgerdomain.Service
	addressSvc  addressdomain.Service
	orderSvc    orderdomain.Service
	checkoutSvc checkoutdomain.Service
	refrepo     referencedomain.Repository
	geoip       *geoip.Client
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Verifier    identity.Verifier
	AuthzSvc    authorization.Service
	CatalogSvc  catalogdomain.Service
	TenantSvc   tenantdomain.Service
	EmployeeSvc employeedomain.Service
	LedgerSvc   ledgerdomain.Service
	AddressSvc  addressdomain.Service
	OrderSvc    orderdomain.Service
	CheckoutSvc checkoutdomain.Service
	Refrepo     referencedomain.Repository
	GeoIP       *geoip.Client `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		verifier:    p.Verifier,
		authzSvc:    p.AuthzSvc,
		catalogSvc:  p.CatalogSvc,
		tenantSvc:   p.TenantSvc,
		employeeSvc: p.EmployeeSvc,
		ledgerSvc:   p.LedgerSvc,
		addressSvc:  p.AddressSvc,
		orderSvc:    p.OrderSvc,
		checkoutSvc: p.CheckoutSvc,
		refrepo:     p.Refrepo,
		geoip:       p.GeoIP,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()
	svc.registerTenantRoutes()
	svc.registerEmployeeRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api/v1")

	api.GET("/storefront/:slug", s.GetStorefront)

	reference := api.Group("/reference")
	{
		reference.GET("/countries", s.ListCountries)
		reference.GET("/country-suggestion", s.SuggestCountry)
	}

	api.POST("/tenants", s.AuthRequired(), s.authorize(authorization.ObjectTenant, authorization.ActionTenantRegister, scopeNone), s.RegisterTenant)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/v1/admin", s.AuthRequired())

	products := admin.Group("/products")
	{
		products.GET("", s.authorize(authorization.ObjectProduct, authorization.ActionView, scopeNone), s.ListProducts)
		products.POST("", s.authorize(authorization.ObjectProduct, authorization.ActionCreate, scopeNone), s.CreateProduct)
		products.GET("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionView, scopeNone), s.GetProduct)
		products.PUT("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionUpdate, scopeNone), s.UpdateProduct)
		products.DELETE("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionDelete, scopeNone), s.DeleteProduct)
		products.PUT("/:id/stock", s.authorize(authorization.ObjectProduct, authorization.ActionUpdate, scopeNone), s.SetProductStock)
	}

	tenants := admin.Group("/tenants", s.authorize(authorization.ObjectTenant, authorization.ActionTenantReview, scopeNone))
	{
		tenants.GET("", s.ListTenants)
		tenants.POST("/:id/approve", s.ApproveTenant)
		tenants.POST("/:id/reject", s.RejectTenant)
	}

	orders := admin.Group("/orders")
	{
		orders.GET("", s.authorize(authorization.ObjectOrder, authorization.ActionOrderViewAll, scopeNone), s.ListAllOrders)
		orders.GET("/:id", s.authorize(authorization.ObjectOrder, authorization.ActionOrderViewAll, scopeNone), s.GetOrder)
		orders.PATCH("/:id/status", s.authorize(authorization.ObjectOrder, authorization.ActionOrderTransition, scopeNone), s.UpdateOrderStatus)
		orders.GET("/:id/packing-slip", s.authorize(authorization.ObjectOrder, authorization.ActionOrderPackingSlip, scopeNone), s.GetPackingSlip)
	}
}

func (s *Server) registerTenantRoutes() {
	tenant := s.engine.Group("/api/v1/tenant", s.AuthRequired(), s.TenantContext())

	tenant.GET("", s.authorize(authorization.ObjectTenant, authorization.ActionView, scopeTenant), s.GetTenant)
	tenant.PUT("/branding", s.authorize(authorization.ObjectTenant, authorization.ActionUpdate, scopeTenant), s.UpdateBranding)

	products := tenant.Group("/products")
	{
		products.GET("", s.authorize(authorization.ObjectCatalog, authorization.ActionView, scopeTenant), s.ListTenantProducts)
		products.PUT("", s.authorize(authorization.ObjectCatalog, authorization.ActionUpdate, scopeTenant), s.ReplaceTenantProducts)
		products.PUT("/:id", s.authorize(authorization.ObjectCatalog, authorization.ActionUpdate, scopeTenant), s.SetTenantProduct)
	}

	employees := tenant.Group("/employees")
	{
		employees.GET("", s.authorize(authorization.ObjectEmployee, authorization.ActionView, scopeTenant), s.ListEmployees)
		employees.POST("", s.authorize(authorization.ObjectEmployee, authorization.ActionCreate, scopeTenant), s.CreateEmployee)
		employees.POST("/import", s.authorize(authorization.ObjectEmployee, authorization.ActionEmployeeImport, scopeTenant), s.ImportEmployees)
		employees.DELETE("/:id", s.authorize(authorization.ObjectEmployee, authorization.ActionDelete, scopeTenant), s.DeleteEmployee)
		employees.PUT("/:id/status", s.authorize(authorization.ObjectEmployee, authorization.ActionUpdate, scopeTenant), s.SetEmployeeStatus)
		employees.POST("/:id/grants", s.authorize(authorization.ObjectEmployee, authorization.ActionEmployeeGrant, scopeTenant), s.GrantPoints)
	}

	tenant.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView, scopeTenant), s.ListTenantOrders)
}

func (s *Server) registerEmployeeRoutes() {
	me := s.engine.Group("/api/v1/me", s.AuthRequired(), s.EmployeeContext())

	me.GET("", s.authorize(authorization.ObjectLedger, authorization.ActionView, scopeTenant), s.Me)
	me.GET("/catalog", s.authorize(authorization.ObjectCatalog, authorization.ActionView, scopeTenant), s.ListMyCatalog)
	me.GET("/ledger", s.authorize(authorization.ObjectLedger, authorization.ActionView, scopeTenant), s.ListMyLedger)
	me.POST("/checkout", s.authorize(authorization.ObjectCheckout, authorization.ActionCreate, scopeTenant), s.Checkout)
	me.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView, scopeTenant), s.ListMyOrders)
	me.GET("/address", s.authorize(authorization.ObjectAddress, authorization.ActionView, scopeTenant), s.GetMyAddress)
	me.PUT("/address", s.authorize(authorization.ObjectAddress, authorization.ActionUpdate, scopeTenant), s.SaveMyAddress)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
