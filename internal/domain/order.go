package domain

import "time"

// Order status constants. Fulfillment only moves forward:
// processing -> shipped -> delivered, and delivered is terminal.
const (
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
)

// Order represents a placed customer order.
type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	Status        string      `json:"status"`
	Items         []OrderItem `json:"items"`
	ShippingInfo  Shipping    `json:"shipping_info"`
	PaymentID     string      `json:"payment_id"`
	PaymentStatus string      `json:"payment_status"`
	ItemsPrice    int64       `json:"items_price"`
	TaxPrice      int64       `json:"tax_price"`
	ShippingPrice int64       `json:"shipping_price"`
	TotalPrice    int64       `json:"total_price"`
	PaidAt        time.Time   `json:"paid_at"`
	DeliveredAt   *time.Time  `json:"delivered_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// OrderItem is a single line item of an order. Name, Price, and ImageURL are
// snapshotted from the referenced product when the order is created, so later
// product edits do not rewrite order history.
type OrderItem struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Name      string `json:"name,omitempty"`
	Price     int64  `json:"price,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
}

// Shipping holds the delivery address for an order.
type Shipping struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// ValidOrderStatuses returns all valid order statuses.
func ValidOrderStatuses() []string {
	return []string{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered}
}

// IsValidOrderStatus checks if a status string is valid.
func IsValidOrderStatus(status string) bool {
	for _, s := range ValidOrderStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedOrderTransitions defines which status transitions are valid.
func AllowedOrderTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusProcessing: {OrderStatusShipped},
		OrderStatusShipped:    {OrderStatusDelivered},
		OrderStatusDelivered:  {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	allowed, ok := AllowedOrderTransitions()[o.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// LineTotal returns price * quantity for the item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}
