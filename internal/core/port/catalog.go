package port

import (
	"context"

	"github.com/MikeRez0/orderpay/internal/core/domain"
)

//go:generate mockgen -source=catalog.go -destination=mock/catalog.go -package=mock
type Catalog interface {
	GetProduct(ctx context.Context, productID uint64) (*domain.Product, error)
}

type CustomerDirectory interface {
	GetCustomer(ctx context.Context, customerID uint64) (*domain.Customer, error)
}
