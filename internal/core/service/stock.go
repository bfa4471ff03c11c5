package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"golang.org/x/sync/errgroup"
)

const stockCheckConcurrency = 8

type StockValidator struct {
	catalog port.Catalog
}

func NewStockValidator(catalog port.Catalog) *StockValidator {
	return &StockValidator{catalog: catalog}
}

// Check looks every product up once and reports availability for the summed
// quantity of all lines referring to it, in first-seen order.
func (v *StockValidator) Check(ctx context.Context, lines []domain.OrderLine) ([]domain.StockCheck, error) {
	order := make([]uint64, 0, len(lines))
	requested := make(map[uint64]int, len(lines))
	for _, l := range lines {
		if _, ok := requested[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
	}

	var mu sync.Mutex
	products := make(map[uint64]*domain.Product, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockCheckConcurrency)
	for _, id := range order {
		g.Go(func() error {
			p, err := v.catalog.GetProduct(gctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrDataNotFound) {
					return domain.NewValidationError("items", fmt.Sprintf("product %d does not exist", id))
				}
				return fmt.Errorf("get product %d: %w", id, err)
			}
			mu.Lock()
			products[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]domain.StockCheck, 0, len(order))
	for _, id := range order {
		p := products[id]
		result = append(result, domain.StockCheck{
			Product:   p,
			Requested: requested[id],
			Available: p.Available(requested[id]),
		})
	}
	return result, nil
}

// Validate accepts the whole order or rejects it on the first unavailable
// product. There is no partial fulfilment.
func (v *StockValidator) Validate(ctx context.Context, lines []domain.OrderLine) (map[uint64]*domain.Product, error) {
	checks, err := v.Check(ctx, lines)
	if err != nil {
		return nil, err
	}
	products := make(map[uint64]*domain.Product, len(checks))
	for _, c := range checks {
		if !c.Available {
			available := c.Product.StockQuantity
			if c.Product.Status != domain.ProductStatusActive {
				available = 0
			}
			return nil, &domain.InsufficientStockError{
				ProductID: c.Product.ID,
				Requested: c.Requested,
				Available: available,
			}
		}
		products[c.Product.ID] = c.Product
	}
	return products, nil
}
