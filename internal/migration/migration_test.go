package migration

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/smallbiznis/giftflow/internal/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	assert.Equal(t, ups, downs)
}

func TestSchemaCoversModels(t *testing.T) {
	raw, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	conn := dbtest.Open(t)
	require.NoError(t, AutoMigrate(conn))
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: conn}
		require.NoError(t, stmt.Parse(model))
		table := stmt.Schema.Table
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (", table)
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
