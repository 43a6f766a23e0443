package cart

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, cost int64) catalogdomain.Product {
	return catalogdomain.Product{ID: snowflake.ID(id), Name: "p", PointCost: cost, Active: true}
}

func TestAddIncrementsExistingLine(t *testing.T) {
	c := New()
	c.Add(product(1, 30))
	c.Add(product(2, 10))
	c.Add(product(1, 30))

	require.Equal(t, 2, c.Len())
	assert.Equal(t, int64(2), c.Quantity(1))
	assert.Equal(t, int64(70), c.Total())

	lines := c.Lines()
	assert.Equal(t, snowflake.ID(1), lines[0].ProductID())
	assert.Equal(t, snowflake.ID(2), lines[1].ProductID())
}

func TestSetQuantity(t *testing.T) {
	c := New()
	c.Add(product(1, 30))
	c.Add(product(2, 10))

	c.SetQuantity(2, 5)
	assert.Equal(t, int64(80), c.Total())

	c.SetQuantity(99, 3)
	assert.Equal(t, 2, c.Len())

	c.SetQuantity(1, 0)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(50), c.Total())

	c.SetQuantity(2, -1)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.Total())
}

func TestRemoveKeepsOrderAndIndex(t *testing.T) {
	c := New()
	c.Add(product(1, 1))
	c.Add(product(2, 2))
	c.Add(product(3, 3))

	c.Remove(1)
	c.Remove(42)
	require.Equal(t, []snowflake.ID{2, 3}, c.ProductIDs())

	c.SetQuantity(3, 4)
	assert.Equal(t, int64(14), c.Total())
}

func TestTotalTracksPriceSnapshots(t *testing.T) {
	c := New()
	c.Add(product(1, 30))
	c.AddQuantity(product(1, 25), 1)
	assert.Equal(t, int64(50), c.Total())
}

func TestLinesIsACopy(t *testing.T) {
	c := New()
	c.Add(product(1, 30))
	lines := c.Lines()
	lines[0].Quantity = 100
	assert.Equal(t, int64(30), c.Total())
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(product(1, 30))
	c.Clear()
	assert.True(t, c.IsEmpty())
	c.Add(product(1, 30))
	assert.Equal(t, 1, c.Len())
}

func TestFromLines(t *testing.T) {
	c, err := FromLines([]LineInput{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
		{ProductID: 1, Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.Quantity(1))
	assert.Equal(t, []snowflake.ID{1, 2}, c.ProductIDs())

	_, err = FromLines([]LineInput{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = FromLines([]LineInput{{Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidProduct)
	_, err = FromLines([]LineInput{{ProductID: 1, Quantity: MaxLineQuantity + 1}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = FromLines([]LineInput{
		{ProductID: 1, Quantity: MaxLineQuantity},
		{ProductID: 1, Quantity: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	empty, err := FromLines(nil)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestNilCartIsEmpty(t *testing.T) {
	var c *Cart
	assert.True(t, c.IsEmpty())
}

func TestLineQuantityIsCapped(t *testing.T) {
	c := New()
	c.AddQuantity(catalogdomain.Product{ID: 1, PointCost: 2}, 1<<62)
	assert.Equal(t, MaxLineQuantity, c.Quantity(1))

	c.AddQuantity(catalogdomain.Product{ID: 1}, 5)
	assert.Equal(t, MaxLineQuantity, c.Quantity(1))

	c.SetQuantity(1, MaxLineQuantity*3)
	assert.Equal(t, MaxLineQuantity, c.Quantity(1))
	assert.Equal(t, 2*MaxLineQuantity, c.Total())
}
