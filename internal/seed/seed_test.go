package seed

import (
	"testing"

	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	"github.com/smallbiznis/giftflow/internal/dbtest"
	employeedomain "github.com/smallbiznis/giftflow/internal/employee/domain"
	ledgerdomain "github.com/smallbiznis/giftflow/internal/ledger/domain"
	referencedomain "github.com/smallbiznis/giftflow/internal/reference/domain"
	tenantdomain "github.com/smallbiznis/giftflow/internal/tenant/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountries(t *testing.T) {
	countries, err := Countries()
	require.NoError(t, err)
	require.NotEmpty(t, countries)

	seen := map[string]bool{}
	for _, c := range countries {
		assert.Len(t, c.Code, 2, c.Name)
		assert.NotEmpty(t, c.Name)
		assert.True(t, len(c.PhoneCode) > 1 && c.PhoneCode[0] == '+', c.Code)
		assert.False(t, seen[c.Code], "duplicate %s", c.Code)
		seen[c.Code] = true
	}
	assert.True(t, seen["PT"])
}

func TestEnsureCountriesIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t, &referencedomain.Country{})
	require.NoError(t, EnsureCountries(conn))
	require.NoError(t, EnsureCountries(conn))

	countries, err := Countries()
	require.NoError(t, err)
	var n int64
	require.NoError(t, conn.Model(&referencedomain.Country{}).Count(&n).Error)
	assert.Equal(t, int64(len(countries)), n)
}

func TestEnsureDemoStore(t *testing.T) {
	conn := dbtest.Open(t,
		&tenantdomain.Tenant{},
		&catalogdomain.Product{},
		&catalogdomain.TenantProduct{},
		&employeedomain.Employee{},
		&ledgerdomain.Entry{},
	)
	node := dbtest.Node(t)

	require.NoError(t, EnsureDemoStore(conn, node))
	require.NoError(t, EnsureDemoStore(conn, node))

	var tenant tenantdomain.Tenant
	require.NoError(t, conn.First(&tenant, "slug = ?", DemoSlug).Error)
	assert.Equal(t, tenantdomain.StatusApproved, tenant.Status)

	var selected int64
	require.NoError(t, conn.Model(&catalogdomain.TenantProduct{}).Where("tenant_id = ?", tenant.ID).Count(&selected).Error)
	assert.Equal(t, int64(3), selected)

	var emp employeedomain.Employee
	require.NoError(t, conn.First(&emp, "tenant_id = ?", tenant.ID).Error)
	assert.Equal(t, int64(demoEmployeePts), emp.PointsBalance)

	var entries int64
	require.NoError(t, conn.Model(&ledgerdomain.Entry{}).Where("employee_id = ?", emp.ID).Count(&entries).Error)
	assert.Equal(t, int64(1), entries)
}
