package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "UPDATE", operationFromSQL("UPDATE employees SET points_balance = ?"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH t AS (SELECT 1) SELECT * FROM t"))
	assert.Equal(t, "INSERT", operationFromSQL("  (INSERT INTO orders VALUES (?))"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
