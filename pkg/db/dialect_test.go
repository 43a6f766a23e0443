package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSNUsesReadCommitted(t *testing.T) {
	dsn := mysqlDSN(Config{User: "gf", Password: "secret", Host: "db", Port: "3306", Name: "giftflow"})
	assert.Equal(t, "gf:secret@tcp(db:3306)/giftflow?charset=utf8mb4&parseTime=True&loc=UTC&transaction_isolation=%27READ-COMMITTED%27", dsn)
}

func TestDialect(t *testing.T) {
	for _, typ := range []string{"mysql", " Postgres ", "sqlite"} {
		d, err := Dialect(Config{Type: typ, Name: "giftflow"})
		require.NoError(t, err, typ)
		assert.NotNil(t, d)
	}

	_, err := Dialect(Config{Type: "oracle"})
	assert.Error(t, err)
}
