package http

import (
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// cartView is the JSON projection of a cart. TotalItems counts lines, not
// units.
type cartView struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"session_id"`
	Items       []cartItemView `json:"items"`
	TotalItems  int            `json:"total_items"`
	TotalAmount int64          `json:"total_amount"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type cartItemView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

func newCartView(c *domain.Cart) cartView {
	v := cartView{
		ID:          c.ID,
		SessionID:   c.SessionID,
		Items:       make([]cartItemView, len(c.Items)),
		TotalItems:  len(c.Items),
		TotalAmount: c.TotalAmount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	for i := range c.Items {
		it := &c.Items[i]
		v.Items[i] = cartItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal(),
		}
	}
	return v
}

type orderView struct {
	ID              string          `json:"id"`
	CartID          string          `json:"cart_id"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	CustomerPhone   string          `json:"customer_phone"`
	ShippingAddress string          `json:"shipping_address"`
	ShippingCity    string          `json:"shipping_city"`
	ShippingZip     string          `json:"shipping_zip"`
	TotalAmount     int64           `json:"total_amount"`
	Status          string          `json:"status"`
	Items           []orderItemView `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type orderItemView struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	Subtotal    int64  `json:"subtotal"`
}

func newOrderView(o domain.Order) orderView {
	v := orderView{
		ID:              o.ID,
		CartID:          o.CartID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		ShippingAddress: o.ShippingAddress,
		ShippingCity:    o.ShippingCity,
		ShippingZip:     o.ShippingZip,
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
		Items:           make([]orderItemView, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for i := range o.Items {
		it := &o.Items[i]
		v.Items[i] = orderItemView{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
			Subtotal:    it.Subtotal(),
		}
	}
	return v
}
