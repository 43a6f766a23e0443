package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePackingSlip(t *testing.T) {
	p := New()
	r, err := p.GeneratePackingSlip(context.Background(), PackingSlipData{
		TenantName:    "Acme",
		OrderNumber:   "GF-01J0000000000000000000000",
		PlacedAt:      "2026-10-01",
		Status:        "pending",
		RecipientName: "Ana",
		AddressLines:  []string{"1 Main St", "", "Springfield 12345"},
		Items:         []PackingSlipItem{{ProductName: "Mug", Quantity: 2, PointCost: 20, LineTotal: 40}},
		TotalPoints:   40,
	})
	require.NoError(t, err)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.True(t, len(b) > 4)
	assert.Equal(t, "%PDF", string(b[:4]))
}

func TestGeneratePackingSlipRequiresOrderNumber(t *testing.T) {
	_, err := New().GeneratePackingSlip(context.Background(), PackingSlipData{})
	assert.Error(t, err)
}
