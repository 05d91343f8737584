package domain

import "fmt"

// OrderStatus lifecycle state of an order on the exchange.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusClosed    OrderStatus = "closed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{
	OrderStatusOpen,
	OrderStatusClosed,
	OrderStatusPending,
	OrderStatusPartial,
	OrderStatusCancelled,
	OrderStatusRejected,
}

// IsValid checks if the OrderStatus value is valid.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LimitOrder order submission payload for POST /orders.
type LimitOrder struct {
	Pair   string `json:"pair"`
	Price  string `json:"price"`
	Amount string `json:"amount"`
	Side   Side   `json:"side"`
}

// String returns a human-readable string representation.
func (o LimitOrder) String() string {
	return fmt.Sprintf("%s %s amount: %s price: %s", o.Pair, o.Side, o.Amount, o.Price)
}

// LimitOrderDocket exchange acknowledgment of a submitted order.
type LimitOrderDocket struct {
	OrderID   int64  `json:"order_id"`
	Pair      string `json:"pair"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	Remain    string `json:"remain"`
	Side      string `json:"side"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

// Order historical or open order record.
type Order struct {
	OrderID   int64       `json:"order_id"`
	Pair      string      `json:"pair"`
	Price     string      `json:"price"`
	Amount    string      `json:"amount"`
	Remain    string      `json:"remain"`
	Side      string      `json:"side"`
	Status    OrderStatus `json:"status"`
	Timestamp string      `json:"timestamp"`
	Type      string      `json:"type"`
}

// LimitOrder rebuilds the submission payload that would repeat this order.
func (o Order) LimitOrder() LimitOrder {
	return LimitOrder{
		Pair:   o.Pair,
		Price:  o.Price,
		Amount: o.Amount,
		Side:   Side(o.Side),
	}
}
