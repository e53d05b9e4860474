package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the mutable, session-scoped basket. TotalAmount is derived from
// Items and must only be changed through Recalculate.
type Cart struct {
	ID          string     `json:"id"`
	SessionID   string     `json:"session_id"`
	TotalAmount int64      `json:"total_amount"`
	Items       []CartItem `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CartItem is one product line. UnitPrice is captured when the product is
// first added and does not follow later price changes.
type CartItem struct {
	ID          string `json:"id"`
	CartID      string `json:"cart_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// Subtotal returns UnitPrice * Quantity.
func (i *CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// NewCart returns an empty cart bound to sessionID.
func NewCart(sessionID string, now time.Time) *Cart {
	return &Cart{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindItemIndex returns the index of the line for productID, or -1.
func (c *Cart) FindItemIndex(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// QuantityOf returns the quantity of productID already in the cart.
func (c *Cart) QuantityOf(productID string) int {
	if i := c.FindItemIndex(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// AddItem merges qty into the existing line for p or appends a new line at
// p's current price. Stock is not checked here.
func (c *Cart) AddItem(p *Product, qty int) {
	if i := c.FindItemIndex(p.ID); i >= 0 {
		c.Items[i].Quantity += qty
	} else {
		c.Items = append(c.Items, CartItem{
			ID:          uuid.NewString(),
			CartID:      c.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    qty,
			UnitPrice:   p.Price,
		})
	}
	c.Recalculate()
}

// RemoveItem drops the line for productID and reports whether it existed.
func (c *Cart) RemoveItem(productID string) bool {
	i := c.FindItemIndex(productID)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.Recalculate()
	return true
}

// Clear removes every line.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}

// Recalculate recomputes TotalAmount from the lines.
func (c *Cart) Recalculate() {
	var total int64
	for i := range c.Items {
		total += c.Items[i].Subtotal()
	}
	c.TotalAmount = total
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ProductIDs returns the distinct product ids of the lines in cart order.
func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for i := range c.Items {
		ids = append(ids, c.Items[i].ProductID)
	}
	return ids
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}
