package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/giftflow/internal/dbtest"
	"github.com/smallbiznis/giftflow/internal/principal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(dbtest.Open(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorize(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	admin := principal.Principal{Subject: "ops", Role: principal.RoleGiftingAdmin}
	hr := principal.Principal{Subject: "hr", Role: principal.RoleTenantAdmin, TenantID: 10}
	ana := principal.Principal{Subject: "ana", Role: principal.RoleEmployee, TenantID: 10, EmployeeID: 20}

	assert.NoError(t, svc.Authorize(ctx, admin, 0, ObjectProduct, ActionDelete))
	assert.NoError(t, svc.Authorize(ctx, admin, 10, ObjectOrder, ActionOrderTransition))
	assert.ErrorIs(t, svc.Authorize(ctx, admin, 0, ObjectCheckout, ActionCreate), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, hr, 10, ObjectEmployee, ActionEmployeeGrant))
	assert.ErrorIs(t, svc.Authorize(ctx, hr, 11, ObjectEmployee, ActionEmployeeGrant), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, hr, 0, ObjectProduct, ActionCreate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, hr, 10, ObjectOrder, ActionOrderTransition), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, ana, 10, ObjectCheckout, ActionCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, ana, 10, ObjectEmployee, ActionView), ErrForbidden)

	assert.ErrorIs(t, svc.Authorize(ctx, principal.Principal{Role: principal.RoleEmployee}, 0, ObjectCatalog, ActionView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, ana, 0, "", ActionView), ErrInvalidObject)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := principal.Principal{Subject: "sam", Role: principal.RoleGiftingAdmin}
	require.NoError(t, svc.Authorize(ctx, p, 0, ObjectProduct, ActionCreate))

	p.Role = principal.RoleEmployee
	p.TenantID, p.EmployeeID = 10, 30
	assert.ErrorIs(t, svc.Authorize(ctx, p, 0, ObjectProduct, ActionCreate), ErrForbidden)
}

func TestSeedIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetFilteredPolicy(0, "role:employee")
	require.NoError(t, err)
	assert.Len(t, policies, 7)
}
