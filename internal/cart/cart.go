// Package cart holds an employee's in-progress selection. A Cart performs no
// I/O and is owned by a single session, so it is not safe for concurrent use.
package cart

import (
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/giftflow/internal/catalog/domain"
)

// MaxLineQuantity bounds the units of one product in a cart.
const MaxLineQuantity int64 = 1000

var (
	ErrInvalidProduct  = errors.New("invalid_cart_product")
	ErrInvalidQuantity = errors.New("invalid_cart_quantity")
)

// Line is one product in the cart. Product is a display snapshot; checkout
// re-resolves price and availability from the catalog.
type Line struct {
	Product  catalogdomain.Product `json:"product"`
	Quantity int64                 `json:"quantity"`
}

func (l Line) ProductID() snowflake.ID {
	return l.Product.ID
}

func (l Line) Total() int64 {
	return l.Quantity * l.Product.PointCost
}

// LineInput is the wire form of a cart line.
type LineInput struct {
	ProductID snowflake.ID `json:"product_id"`
	Quantity  int64        `json:"quantity"`
}

type Cart struct {
	lines []Line
	index map[snowflake.ID]int
}

func New() *Cart {
	return &Cart{index: make(map[snowflake.ID]int)}
}

// FromLines builds a cart from request lines, merging repeated products.
func FromLines(inputs []LineInput) (*Cart, error) {
	c := New()
	for _, in := range inputs {
		if in.ProductID == 0 {
			return nil, ErrInvalidProduct
		}
		if in.Quantity <= 0 || in.Quantity > MaxLineQuantity-c.Quantity(in.ProductID) {
			return nil, ErrInvalidQuantity
		}
		c.AddQuantity(catalogdomain.Product{ID: in.ProductID}, in.Quantity)
	}
	return c, nil
}

// Add puts one unit of product in the cart, incrementing an existing line.
func (c *Cart) Add(product catalogdomain.Product) {
	c.AddQuantity(product, 1)
}

// AddQuantity adds n units of product. The line quantity is capped at
// MaxLineQuantity.
func (c *Cart) AddQuantity(product catalogdomain.Product, n int64) {
	if product.ID == 0 || n <= 0 {
		return
	}
	if i, ok := c.index[product.ID]; ok {
		c.lines[i].Quantity += min(n, MaxLineQuantity-c.lines[i].Quantity)
		c.lines[i].Product = mergeSnapshot(c.lines[i].Product, product)
		return
	}
	c.index[product.ID] = len(c.lines)
	c.lines = append(c.lines, Line{Product: product, Quantity: min(n, MaxLineQuantity)})
}

// SetQuantity replaces a line's quantity, capped at MaxLineQuantity. A
// quantity of zero or less removes the line; unknown products are ignored.
func (c *Cart) SetQuantity(productID snowflake.ID, qty int64) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	if i, ok := c.index[productID]; ok {
		c.lines[i].Quantity = min(qty, MaxLineQuantity)
	}
}

func (c *Cart) Remove(productID snowflake.ID) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].Product.ID] = j
	}
}

// Total is recomputed from the current lines on every call.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

func (c *Cart) Quantity(productID snowflake.ID) int64 {
	if i, ok := c.index[productID]; ok {
		return c.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) ProductIDs() []snowflake.ID {
	ids := make([]snowflake.ID, 0, len(c.lines))
	for _, l := range c.lines {
		ids = append(ids, l.Product.ID)
	}
	return ids
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.lines) == 0
}

func (c *Cart) Clear() {
	c.lines = nil
	c.index = make(map[snowflake.ID]int)
}

func mergeSnapshot(current, incoming catalogdomain.Product) catalogdomain.Product {
	if incoming.Name == "" && incoming.PointCost == 0 {
		return current
	}
	return incoming
}
