package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/giftflow/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProduct  = "product"
	ObjectTenant   = "tenant"
	ObjectCatalog  = "catalog"
	ObjectEmployee = "employee"
	ObjectLedger   = "ledger"
	ObjectOrder    = "order"
	ObjectCheckout = "checkout"
	ObjectAddress  = "address"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionTenantRegister = "tenant.register"
	ActionTenantReview   = "tenant.review"

	ActionEmployeeImport = "employee.import"
	ActionEmployeeGrant  = "employee.grant"

	ActionOrderViewAll     = "order.view_all"
	ActionOrderTransition  = "order.transition"
	ActionOrderPackingSlip = "order.packing_slip"
)

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, p principal.Principal, tenantID snowflake.ID, object, action string) error {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return ErrInvalidActor
	}
	if _, ok := principal.ParseRole(string(p.Role)); !ok {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	sub := "user:" + subject
	roleName := fmt.Sprintf("role:%s", p.Role)
	if err := s.ensureGrouping(sub, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(sub, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.denied(p, tenantID, object, action, "policy")
		return ErrForbidden
	}
	if tenantID != 0 && !p.InTenant(tenantID) {
		s.denied(p, tenantID, object, action, "tenant_scope")
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject. Roles come from
// identity claims and may change between requests.
func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) denied(p principal.Principal, tenantID snowflake.ID, object, action, reason string) {
	s.log.Info("authorization denied",
		zap.String("subject", p.Subject),
		zap.String("role", string(p.Role)),
		zap.String("tenant_id", tenantID.String()),
		zap.String("object", object),
		zap.String("action", action),
		zap.String("reason", reason),
	)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Gifting admin
		{"role:gifting_admin", ObjectProduct, "*"},
		{"role:gifting_admin", ObjectTenant, ActionView},
		{"role:gifting_admin", ObjectTenant, ActionTenantReview},
		{"role:gifting_admin", ObjectTenant, ActionTenantRegister},
		{"role:gifting_admin", ObjectOrder, ActionView},
		{"role:gifting_admin", ObjectOrder, ActionOrderViewAll},
		{"role:gifting_admin", ObjectOrder, ActionOrderTransition},
		{"role:gifting_admin", ObjectOrder, ActionOrderPackingSlip},

		// Tenant admin
		{"role:tenant_admin", ObjectTenant, ActionTenantRegister},
		{"role:tenant_admin", ObjectTenant, ActionView},
		{"role:tenant_admin", ObjectTenant, ActionUpdate},
		{"role:tenant_admin", ObjectProduct, ActionView},
		{"role:tenant_admin", ObjectCatalog, ActionView},
		{"role:tenant_admin", ObjectCatalog, ActionUpdate},
		{"role:tenant_admin", ObjectEmployee, ActionView},
		{"role:tenant_admin", ObjectEmployee, ActionCreate},
		{"role:tenant_admin", ObjectEmployee, ActionUpdate},
		{"role:tenant_admin", ObjectEmployee, ActionDelete},
		{"role:tenant_admin", ObjectEmployee, ActionEmployeeImport},
		{"role:tenant_admin", ObjectEmployee, ActionEmployeeGrant},
		{"role:tenant_admin", ObjectLedger, ActionView},
		{"role:tenant_admin", ObjectOrder, ActionView},

		// Employee
		{"role:employee", ObjectTenant, ActionTenantRegister},
		{"role:employee", ObjectCatalog, ActionView},
		{"role:employee", ObjectLedger, ActionView},
		{"role:employee", ObjectCheckout, ActionCreate},
		{"role:employee", ObjectOrder, ActionView},
		{"role:employee", ObjectAddress, ActionView},
		{"role:employee", ObjectAddress, ActionUpdate},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
