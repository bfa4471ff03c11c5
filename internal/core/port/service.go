package port

import (
	"context"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

//go:generate mockgen -source=service.go -destination=mock/service.go -package=mock
type OrderService interface {
	CreateOrder(ctx context.Context, draft *domain.OrderDraft) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, orderID uint64) (*domain.Order, error)

	InitializePayment(ctx context.Context, orderID uint64) (*domain.CheckoutHandle, error)
	ListPayments(ctx context.Context, orderID uint64) ([]*domain.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	IsFullyPaid(ctx context.Context, orderID uint64) (bool, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, channel domain.WebhookChannel, payload []byte) (domain.Outcome, error)
}

type WebhookVerifier interface {
	Verify(payload []byte, signatures ...string) error
}
