package principal

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleGiftingAdmin Role = "gifting_admin"
	RoleTenantAdmin  Role = "tenant_admin"
	RoleEmployee     Role = "employee"
)

var ErrNoPrincipal = errors.New("no_principal")

// Principal is the authenticated caller of a request.
type Principal struct {
	Subject    string
	Email      string
	Role       Role
	TenantID   snowflake.ID
	EmployeeID snowflake.ID
}

func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleGiftingAdmin:
		return RoleGiftingAdmin, true
	case RoleTenantAdmin:
		return RoleTenantAdmin, true
	case RoleEmployee:
		return RoleEmployee, true
	default:
		return "", false
	}
}

func (p Principal) IsGiftingAdmin() bool { return p.Role == RoleGiftingAdmin }

// InTenant reports whether the principal may act inside tenantID.
func (p Principal) InTenant(tenantID snowflake.ID) bool {
	if p.IsGiftingAdmin() {
		return true
	}
	return p.TenantID != 0 && p.TenantID == tenantID
}

type contextKey struct{}

// WithPrincipal stores p in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored in ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(contextKey{}).(Principal)
	if !ok || strings.TrimSpace(p.Subject) == "" {
		return Principal{}, false
	}
	return p, true
}
