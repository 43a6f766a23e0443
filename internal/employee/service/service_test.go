package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/giftflow/internal/clock"
	"github.com/smallbiznis/giftflow/internal/config"
	"github.com/smallbiznis/giftflow/internal/dbtest"
	"github.com/smallbiznis/giftflow/internal/employee/domain"
	"github.com/smallbiznis/giftflow/internal/employee/repository"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/giftflow/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/giftflow/internal/ledger/service"
	"github.com/smallbiznis/giftflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (domain.Service, *gorm.DB, snowflake.ID) {
	t.Helper()
	conn := dbtest.Open(t, &domain.Employee{}, &ledgerdomain.Entry{})
	node := dbtest.Node(t)
	holder := config.NewStaticStorefrontConfigHolder(config.DefaultStorefrontConfig())
	fake := clock.NewFakeClock(time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC))

	ledger := ledgerservice.New(ledgerservice.Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          ledgerrepo.Provide(),
		StorefrontCfg: holder,
		Clock:         fake,
	})
	svc := New(Params{
		DB:            conn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Ledger:        ledger,
		StorefrontCfg: holder,
		Clock:         fake,
	})
	return svc, conn, node.Generate()
}

func TestCreateCreditsInitialPointsThroughLedger(t *testing.T) {
	svc, conn, tenantID := newService(t)
	ctx := context.Background()

	emp, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "Ana@Example.com", Name: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", emp.Email)
	assert.Equal(t, int64(100), emp.PointsBalance)
	assert.Equal(t, domain.StatusActive, emp.Status)

	var entries []ledgerdomain.Entry
	require.NoError(t, conn.Where("employee_id = ?", emp.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, ledgerdomain.SourceTypeImport, entries[0].SourceType)
	assert.Equal(t, int64(100), entries[0].Amount)

	zero := int64(0)
	emp2, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "bo@example.com", Name: "Bo", Points: &zero})
	require.NoError(t, err)
	assert.Equal(t, int64(0), emp2.PointsBalance)
}

func TestCreateValidation(t *testing.T) {
	svc, _, tenantID := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "not-an-email", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	_, err = svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "x@example.com", Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	negative := int64(-1)
	_, err = svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "x@example.com", Name: "X", Points: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidPoints)

	_, err = svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "x@example.com", Name: "X"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "X@example.com", Name: "X"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestImport(t *testing.T) {
	svc, _, tenantID := newService(t)
	ctx := context.Background()

	csvBody := strings.Join([]string{
		"email,name,points",
		"ana@example.com,Ana,250",
		"",
		"bo@example.com,Bo",
		"broken,Nobody,10",
		"cy@example.com,Cy,-3",
		"ana@example.com,Ana Again,5",
		"di@example.com,,5",
	}, "\n")

	result, err := svc.Import(ctx, tenantID, strings.NewReader(csvBody))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Errors, 4)
	assert.Equal(t, 5, result.Errors[0].Row)
	assert.Equal(t, domain.ErrInvalidEmail.Error(), result.Errors[0].Error)
	assert.Equal(t, domain.ErrInvalidPoints.Error(), result.Errors[1].Error)
	assert.Equal(t, domain.ErrDuplicateEmail.Error(), result.Errors[2].Error)
	assert.Equal(t, domain.ErrInvalidName.Error(), result.Errors[3].Error)

	ana, err := svc.GetByEmail(ctx, tenantID, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(250), ana.PointsBalance)

	bo, err := svc.GetByEmail(ctx, tenantID, "bo@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(100), bo.PointsBalance)
}

func TestStatusDeleteAndList(t *testing.T) {
	svc, _, tenantID := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "b@example.com", Name: "B"})
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, tenantID, a.ID, domain.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInactive, updated.Status)
	assert.False(t, updated.IsActive())

	_, err = svc.SetStatus(ctx, tenantID, a.ID, domain.Status("archived"))
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	active, _, err := svc.List(ctx, tenantID, domain.ListFilter{Status: domain.StatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b.ID, active[0].ID)

	require.NoError(t, svc.Delete(ctx, tenantID, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, tenantID, b.ID), domain.ErrNotFound)
	_, err = svc.Get(ctx, tenantID, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, info, err := svc.List(ctx, tenantID, domain.ListFilter{Pagination: pagination.Pagination{PageSize: 10}})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.False(t, info.HasMore)

	_, err = svc.Get(ctx, snowflake.ID(1), a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGrant(t *testing.T) {
	svc, _, tenantID := newService(t)
	ctx := context.Background()

	emp, err := svc.Create(ctx, domain.CreateRequest{TenantID: tenantID, Email: "a@example.com", Name: "A"})
	require.NoError(t, err)

	balance, err := svc.Grant(ctx, domain.GrantRequest{TenantID: tenantID, EmployeeID: emp.ID, Amount: 40, ReferenceID: "diwali"})
	require.NoError(t, err)
	assert.Equal(t, int64(140), balance.Points)

	balance, err = svc.Grant(ctx, domain.GrantRequest{TenantID: tenantID, EmployeeID: emp.ID, Amount: 40, ReferenceID: "diwali"})
	require.NoError(t, err)
	assert.Equal(t, int64(140), balance.Points)

	_, err = svc.Grant(ctx, domain.GrantRequest{TenantID: tenantID, EmployeeID: emp.ID, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidPoints)
}
