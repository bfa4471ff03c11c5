package domain

import (
	"time"

	"github.com/govalues/decimal"
)

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusPaymentPending OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaymentFailed  OrderStatus = "PAYMENT_FAILED"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:        {OrderStatusPaymentPending, OrderStatusConfirmed},
	OrderStatusPaymentPending: {OrderStatusConfirmed, OrderStatusPaymentFailed},
	OrderStatusPaymentFailed:  {OrderStatusPaymentPending, OrderStatusConfirmed},
	OrderStatusConfirmed:      {OrderStatusProcessing},
	OrderStatusProcessing:     {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaymentPending, OrderStatusPaymentFailed,
		OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// IsSettled reports whether the order has left the payment phase for good.
func (s OrderStatus) IsSettled() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks a single edge of the order lifecycle.
// CANCELLED and REFUNDED are reachable from every non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled || next == OrderStatusRefunded {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              uint64
	Number          string
	CustomerID      uint64
	Items           []*OrderItem
	Subtotal        decimal.Decimal
	VATAmount       decimal.Decimal
	TotalAmount     decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem keeps the product price and serial number as they were when the
// order was placed.
type OrderItem struct {
	ID           uint64
	OrderID      uint64
	ProductID    uint64
	ProductName  string
	SerialNumber string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal
}

// OrderFilter selects a page of orders, newest first. Zero fields match
// everything.
type OrderFilter struct {
	CustomerID uint64
	Status     OrderStatus
	Limit      uint64
	Offset     uint64
}

type OrderLine struct {
	ProductID uint64
	Quantity  int
}

type OrderDraft struct {
	CustomerID      uint64
	Items           []OrderLine
	ShippingAddress string
	Notes           string
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]*OrderItem, 0, len(o.Items))
	for _, i := range o.Items {
		item := *i
		c.Items = append(c.Items, &item)
	}
	return &c
}
