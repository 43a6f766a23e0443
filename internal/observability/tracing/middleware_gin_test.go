package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstSegment(t *testing.T) {
	assert.Equal(t, "checkout", firstSegment("checkout: insert order: boom"))
	assert.Equal(t, "store_unavailable", firstSegment("store_unavailable"))
}
