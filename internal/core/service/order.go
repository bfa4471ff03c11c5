package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/pricing"
	"github.com/MikeRez0/orderpay/internal/core/reference"
	"go.uber.org/zap"
)

type CheckoutConfig struct {
	Currency    string
	CallbackURL string
	ReturnURL   string
	// PendingTTL is how long an open checkout blocks a new one for the same
	// order. Zero means it blocks until the gateway reports back.
	PendingTTL time.Duration
}

type Service struct {
	repo      port.Repository
	customers port.CustomerDirectory
	gateway   port.PaymentGateway
	stock     *StockValidator
	pricing   *pricing.Calculator
	refs      *reference.Generator
	checkout  CheckoutConfig
	logger    *zap.Logger
}

func NewService(repo port.Repository, catalog port.Catalog, customers port.CustomerDirectory,
	gateway port.PaymentGateway, calc *pricing.Calculator, refs *reference.Generator,
	checkout CheckoutConfig, logger *zap.Logger) (*Service, error) {
	if repo == nil || catalog == nil || customers == nil || gateway == nil || calc == nil || refs == nil {
		return nil, errors.New("service: missing dependency")
	}
	return &Service{
		repo:      repo,
		customers: customers,
		gateway:   gateway,
		stock:     NewStockValidator(catalog),
		pricing:   calc,
		refs:      refs,
		checkout:  checkout,
		logger:    logger,
	}, nil
}

func (s *Service) CreateOrder(ctx context.Context, draft *domain.OrderDraft) (*domain.Order, error) {
	err := validateDraft(draft)
	if err != nil {
		return nil, err
	}

	// check stock for the whole order before anything is written
	products, err := s.stock.Validate(ctx, draft.Items)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		s.logger.Error("Validate stock", zap.Error(err))
		return nil, domain.ErrInternal
	}

	items := make([]*domain.OrderItem, 0, len(draft.Items))
	lines := make([]pricing.Line, 0, len(draft.Items))
	for _, l := range draft.Items {
		p := products[l.ProductID]
		lineTotal, err := pricing.LineTotal(p.Price, l.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, &domain.OrderItem{
			ProductID:    p.ID,
			ProductName:  p.Name,
			SerialNumber: p.SerialNumber,
			Quantity:     l.Quantity,
			UnitPrice:    p.Price.Pad(pricing.MoneyScale),
			TotalPrice:   lineTotal,
		})
		lines = append(lines, pricing.Line{UnitPrice: p.Price, Quantity: l.Quantity})
	}

	totals, err := s.pricing.Calculate(lines)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		CustomerID:      draft.CustomerID,
		Items:           items,
		Subtotal:        totals.Subtotal,
		VATAmount:       totals.VATAmount,
		TotalAmount:     totals.TotalAmount,
		Status:          domain.OrderStatusPending,
		ShippingAddress: draft.ShippingAddress,
		Notes:           draft.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	newOrder, err := reference.Insert(reference.MaxAttempts, s.refs.OrderNumber,
		func(number string) (*domain.Order, error) {
			order.Number = number
			return s.repo.CreateOrder(ctx, order)
		})
	if err != nil {
		s.logger.Error("Create order", zap.Error(err))
		if errors.Is(err, domain.ErrDuplicateReference) {
			return nil, err
		}
		return nil, domain.ErrInternal
	}

	s.logger.Info("Order created",
		zap.String("order", newOrder.Number),
		zap.Uint64("customer", newOrder.CustomerID),
		zap.Stringer("total", newOrder.TotalAmount))

	return newOrder, nil
}

func validateDraft(draft *domain.OrderDraft) error {
	if draft == nil {
		return domain.NewValidationError("order", "is empty")
	}
	if draft.CustomerID == 0 {
		return domain.NewValidationError("customer", "is required")
	}
	if len(draft.Items) == 0 {
		return domain.NewValidationError("items", "at least one item is required")
	}
	for _, l := range draft.Items {
		if l.ProductID == 0 {
			return domain.NewValidationError("items", "product id is required")
		}
		if l.Quantity < 1 {
			return domain.NewValidationError("quantity", "must be at least 1")
		}
	}
	return nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	return s.repo.ReadOrder(ctx, orderID)
}

func (s *Service) GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error) {
	return s.repo.ReadOrderByNumber(ctx, number)
}

const (
	DefaultPageSize uint64 = 50
	MaxPageSize     uint64 = 200
)

// ListOrders returns a page of orders, newest first. A customer's own orders
// are the same query with CustomerID set.
func (s *Service) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", "unknown order status")
	}
	switch {
	case filter.Limit == 0:
		filter.Limit = DefaultPageSize
	case filter.Limit > MaxPageSize:
		filter.Limit = MaxPageSize
	}

	list, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		s.logger.Error("List orders",
			zap.Uint64("customer", filter.CustomerID),
			zap.String("status", string(filter.Status)),
			zap.Error(err))
		return nil, domain.ErrInternal
	}
	return list, nil
}

// UpdateOrderStatus applies an administrative fulfilment transition.
// Payment-driven statuses only change through payments and webhooks.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint64, status domain.OrderStatus) (*domain.Order, error) {
	switch status {
	case domain.OrderStatusProcessing, domain.OrderStatusShipped, domain.OrderStatusDelivered,
		domain.OrderStatusCancelled, domain.OrderStatusRefunded:
	default:
		return nil, domain.ErrInvalidTransition
	}

	order, err := s.repo.UpdateOrder(ctx, orderID, func(o *domain.Order) error {
		if o.Status == status {
			return domain.ErrNoUpdatedData
		}
		if !o.Status.CanTransitionTo(status) {
			return domain.ErrInvalidTransition
		}
		o.Status = status
		o.UpdatedAt = time.Now()
		return nil
	})
	if errors.Is(err, domain.ErrNoUpdatedData) {
		return order, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status updated",
		zap.String("order", order.Number), zap.String("status", string(status)))
	return order, nil
}

// ConfirmOrder retries confirmation of a fully paid order that a stock
// shortfall left unconfirmed. Stock is reserved again against current levels.
func (s *Service) ConfirmOrder(ctx context.Context, orderID uint64) (*domain.Order, error) {
	payments, err := s.ListPayments(ctx, orderID)
	if err != nil {
		return nil, err
	}
	var ref string
	for _, p := range payments {
		if p.Status == domain.PaymentStatusSuccess {
			ref = p.Reference
		}
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: order has no successful payment", domain.ErrInvalidTransition)
	}

	_, err = s.repo.UpdatePaymentByReference(ctx, ref, func(ctx context.Context, st *port.PaymentState) error {
		o := st.Order
		if o.Status == domain.OrderStatusConfirmed {
			return domain.ErrNoUpdatedData
		}
		if !o.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
			return domain.ErrInvalidTransition
		}
		covered, err := domain.CoversTotal(o, st.Payments)
		if err != nil {
			return err
		}
		if !covered {
			return fmt.Errorf("%w: order is not fully paid", domain.ErrInvalidTransition)
		}
		return confirm(ctx, st, time.Now())
	})
	switch {
	case err == nil, errors.Is(err, domain.ErrNoUpdatedData):
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInsufficientStock):
		return nil, err
	default:
		s.logger.Error("Confirm order", zap.Uint64("order", orderID), zap.Error(err))
		return nil, domain.ErrInternal
	}

	order, err := s.repo.ReadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order confirmed by admin",
		zap.String("order", order.Number), zap.String("reference", ref))
	return order, nil
}
