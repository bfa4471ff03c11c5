package port

import (
	"context"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

//go:generate mockgen -source=gateway.go -destination=mock/gateway.go -package=mock
type PaymentGateway interface {
	Initialize(ctx context.Context, req *domain.CheckoutRequest) (*domain.CheckoutHandle, error)
}
