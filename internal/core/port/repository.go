package port

import (
	"context"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

//go:generate mockgen -source=repository.go -destination=mock/repository.go -package=mock
type Repository interface {
	// Order
	CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	ReadOrder(ctx context.Context, orderID uint64) (*domain.Order, error)
	ReadOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateOrder(ctx context.Context, orderID uint64, updateFn UpdateOrderFn) (*domain.Order, error)

	// Payment
	CreatePayment(ctx context.Context, orderID uint64, createFn CreatePaymentFn) (*domain.Payment, error)
	ReadPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID uint64) ([]*domain.Payment, error)
	UpdatePaymentByReference(ctx context.Context, reference string, updateFn UpdatePaymentFn) (*domain.Payment, error)

	// Webhook log
	RecordWebhookEvent(ctx context.Context, event *domain.WebhookEvent) error
	ListWebhookEvents(ctx context.Context, outcome domain.Outcome, limit uint64) ([]*domain.WebhookEvent, error)
}

// PaymentState is the locked Order+Payment pair handed to an update callback.
// Payments holds every payment of the order, Payment included. Tasks appended
// by the callback are written to the outbox in the same transaction.
type PaymentState struct {
	Order    *domain.Order
	Payment  *domain.Payment
	Payments []*domain.Payment
	Tasks    []*domain.Task
	Stock    StockReserver
}

// StockReserver decrements stock inside the running transaction. Either all
// items are reserved or none is.
type StockReserver interface {
	ReserveStock(ctx context.Context, items []*domain.OrderItem) error
}

// UpdatePaymentFn mutates the state in place. Returning domain.ErrNoUpdatedData
// rolls back without error reporting: the state was already as wanted.
type UpdatePaymentFn func(ctx context.Context, state *PaymentState) error

// CreatePaymentFn returns the payment to insert for the locked order.
type CreatePaymentFn func(ctx context.Context, state *PaymentState) (*domain.Payment, error)

type UpdateOrderFn func(order *domain.Order) error
