package domain

import "time"

// Order statuses.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

// Order is created once by checkout. Its items and total never change.
type Order struct {
	ID              string      `json:"id"`
	CartID          string      `json:"cart_id"`
	CustomerName    string      `json:"customer_name"`
	CustomerEmail   string      `json:"customer_email"`
	CustomerPhone   string      `json:"customer_phone"`
	ShippingAddress string      `json:"shipping_address"`
	ShippingCity    string      `json:"shipping_city"`
	ShippingZip     string      `json:"shipping_zip"`
	TotalAmount     int64       `json:"total_amount"`
	Status          string      `json:"status"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// OrderItem snapshots a product line at checkout time. ProductID is a weak
// reference; the product may later be changed or deleted.
type OrderItem struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// Subtotal returns Price * Quantity.
func (i *OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// ValidStatuses returns all order statuses.
func ValidStatuses() []string {
	return []string{OrderStatusPending, OrderStatusPaid, OrderStatusCancelled}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
		OrderStatusPaid:      {},
		OrderStatusCancelled: {},
	}
}

// CanTransitionTo checks if the order can move to target.
func (o *Order) CanTransitionTo(target string) bool {
	for _, s := range AllowedTransitions()[o.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (o *Order) IsTerminal() bool {
	return len(AllowedTransitions()[o.Status]) == 0
}

// CalculateTotal sums the line subtotals.
func (o *Order) CalculateTotal() int64 {
	var total int64
	for i := range o.Items {
		total += o.Items[i].Subtotal()
	}
	return total
}
