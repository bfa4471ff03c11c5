package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/MikeRez0/orderpay/internal/core/port/mock"
	"github.com/MikeRez0/orderpay/internal/core/pricing"
	"github.com/MikeRez0/orderpay/internal/core/reference"
	"github.com/MikeRez0/orderpay/internal/core/service"
	"github.com/golang/mock/gomock"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type prepareMocks func(repo *mock.MockRepository, catalog *mock.MockCatalog)

var (
	router = &domain.Product{
		ID:            1,
		Name:          "Router",
		SerialNumber:  "SN-R-1",
		Price:         decimal.MustParse("115.00"),
		Status:        domain.ProductStatusActive,
		StockQuantity: 10,
	}
	cable = &domain.Product{
		ID:            2,
		Name:          "Cable",
		SerialNumber:  "SN-C-2",
		Price:         decimal.MustParse("50"),
		Status:        domain.ProductStatusActive,
		StockQuantity: 3,
	}
)

func newMockService(t *testing.T, repo *mock.MockRepository, catalog *mock.MockCatalog,
	gateway *mock.MockPaymentGateway) *service.Service {
	t.Helper()
	ctrl := gomock.NewController(t)
	if repo == nil {
		repo = mock.NewMockRepository(ctrl)
	}
	if catalog == nil {
		catalog = mock.NewMockCatalog(ctrl)
	}
	if gateway == nil {
		gateway = mock.NewMockPaymentGateway(ctrl)
	}
	customers := mock.NewMockCustomerDirectory(ctrl)

	calc, err := pricing.NewCalculator(decimal.MustParse("0.15"))
	require.NoError(t, err)

	s, err := service.NewService(repo, catalog, customers, gateway, calc,
		reference.NewGenerator("ST"), service.CheckoutConfig{Currency: "ETB"}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestService_CreateOrder(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type createOrderTest struct {
		name     string
		draft    *domain.OrderDraft
		mock     prepareMocks
		expError error
		check    func(t *testing.T, order *domain.Order)
	}

	stored := func(_ context.Context, o *domain.Order) (*domain.Order, error) {
		c := o.Clone()
		c.ID = 42
		return c, nil
	}

	tests := []createOrderTest{
		{
			name: "Create good",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items: []domain.OrderLine{
					{ProductID: 1, Quantity: 2},
					{ProductID: 2, Quantity: 1},
					{ProductID: 1, Quantity: 1},
				},
				ShippingAddress: "Bole, Addis Ababa",
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil)
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(2)).Return(cable, nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(stored)
			},
			check: func(t *testing.T, order *domain.Order) {
				assert.Equal(t, uint64(42), order.ID)
				assert.Equal(t, domain.OrderStatusPending, order.Status)
				assert.Regexp(t, `^ST\d{12}$`, order.Number)
				assert.Equal(t, "395.00", order.TotalAmount.String())
				assert.Equal(t, "343.48", order.Subtotal.String())
				assert.Equal(t, "51.52", order.VATAmount.String())
				require.Len(t, order.Items, 3)
				assert.Equal(t, "SN-C-2", order.Items[1].SerialNumber)
				assert.Equal(t, "50.00", order.Items[1].UnitPrice.String())
				assert.Equal(t, "230.00", order.Items[0].TotalPrice.String())
			},
		},
		{
			name: "Stock summed across lines",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items: []domain.OrderLine{
					{ProductID: 2, Quantity: 2},
					{ProductID: 2, Quantity: 2},
				},
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(2)).Return(cable, nil)
			},
			expError: &domain.InsufficientStockError{ProductID: 2, Requested: 4, Available: 3},
		},
		{
			name: "Inactive product",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items:      []domain.OrderLine{{ProductID: 3, Quantity: 1}},
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(3)).Return(&domain.Product{
					ID: 3, Price: decimal.One, Status: domain.ProductStatusInactive, StockQuantity: 9,
				}, nil)
			},
			expError: &domain.InsufficientStockError{ProductID: 3, Requested: 1, Available: 0},
		},
		{
			name: "Unknown product",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items:      []domain.OrderLine{{ProductID: 99, Quantity: 1}},
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(99)).Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrValidation,
		},
		{
			name: "Zero quantity",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items:      []domain.OrderLine{{ProductID: 1, Quantity: 0}},
			},
			mock:     func(repo *mock.MockRepository, catalog *mock.MockCatalog) {},
			expError: domain.ErrValidation,
		},
		{
			name:     "No items",
			draft:    &domain.OrderDraft{CustomerID: 7},
			mock:     func(repo *mock.MockRepository, catalog *mock.MockCatalog) {},
			expError: domain.ErrValidation,
		},
		{
			name: "Order number collision retried",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items:      []domain.OrderLine{{ProductID: 1, Quantity: 1}},
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil)
				gomock.InOrder(
					repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, domain.ErrConflictingData),
					repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(stored),
				)
			},
			check: func(t *testing.T, order *domain.Order) {
				assert.Equal(t, "115.00", order.TotalAmount.String())
			},
		},
		{
			name: "Storage failure",
			draft: &domain.OrderDraft{
				CustomerID: 7,
				Items:      []domain.OrderLine{{ProductID: 1, Quantity: 1}},
			},
			mock: func(repo *mock.MockRepository, catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))
			},
			expError: domain.ErrInternal,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := mock.NewMockRepository(mockCtrl)
			catalog := mock.NewMockCatalog(mockCtrl)
			test.mock(repo, catalog)

			s := newMockService(t, repo, catalog, nil)
			result, err := s.CreateOrder(context.Background(), test.draft)

			if test.expError != nil {
				assert.Nil(t, result)
				var stockErr *domain.InsufficientStockError
				if errors.As(test.expError, &stockErr) {
					assert.Equal(t, test.expError, err)
					return
				}
				assert.ErrorIs(t, err, test.expError)
				return
			}
			require.NoError(t, err)
			test.check(t, result)
		})
	}
}

func TestService_UpdateOrderStatus(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type statusTest struct {
		name      string
		current   domain.OrderStatus
		next      domain.OrderStatus
		expError  error
		expStatus domain.OrderStatus
	}

	tests := []statusTest{
		{name: "Confirmed to processing", current: domain.OrderStatusConfirmed,
			next: domain.OrderStatusProcessing, expStatus: domain.OrderStatusProcessing},
		{name: "Processing to shipped", current: domain.OrderStatusProcessing,
			next: domain.OrderStatusShipped, expStatus: domain.OrderStatusShipped},
		{name: "Skip a step", current: domain.OrderStatusConfirmed,
			next: domain.OrderStatusDelivered, expError: domain.ErrInvalidTransition},
		{name: "Cancel pending", current: domain.OrderStatusPending,
			next: domain.OrderStatusCancelled, expStatus: domain.OrderStatusCancelled},
		{name: "Delivered is terminal", current: domain.OrderStatusDelivered,
			next: domain.OrderStatusRefunded, expError: domain.ErrInvalidTransition},
		{name: "Same status is a no-op", current: domain.OrderStatusShipped,
			next: domain.OrderStatusShipped, expStatus: domain.OrderStatusShipped},
		{name: "Confirmation is payment driven", current: domain.OrderStatusPending,
			next: domain.OrderStatusConfirmed, expError: domain.ErrInvalidTransition},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := mock.NewMockRepository(mockCtrl)
			if test.next != domain.OrderStatusConfirmed {
				repo.EXPECT().UpdateOrder(gomock.Any(), uint64(5), gomock.Any()).DoAndReturn(
					func(_ context.Context, _ uint64, fn port.UpdateOrderFn) (*domain.Order, error) {
						order := &domain.Order{ID: 5, Number: "ST202401011234", Status: test.current}
						if err := fn(order); err != nil {
							if errors.Is(err, domain.ErrNoUpdatedData) {
								return order, err
							}
							return nil, err
						}
						return order, nil
					})
			}

			s := newMockService(t, repo, nil, nil)
			result, err := s.UpdateOrderStatus(context.Background(), 5, test.next)

			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, result.Status)
		})
	}
}

func TestService_ListOrders(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type listTest struct {
		name      string
		filter    domain.OrderFilter
		expFilter *domain.OrderFilter
		repoErr   error
		expError  error
	}

	tests := []listTest{
		{
			name:      "default page size",
			filter:    domain.OrderFilter{CustomerID: 7},
			expFilter: &domain.OrderFilter{CustomerID: 7, Limit: service.DefaultPageSize},
		},
		{
			name:      "page size capped",
			filter:    domain.OrderFilter{Status: domain.OrderStatusConfirmed, Limit: 10000, Offset: 400},
			expFilter: &domain.OrderFilter{Status: domain.OrderStatusConfirmed, Limit: service.MaxPageSize, Offset: 400},
		},
		{
			name:     "unknown status",
			filter:   domain.OrderFilter{Status: "LOST"},
			expError: domain.ErrValidation,
		},
		{
			name:      "storage failure",
			filter:    domain.OrderFilter{Limit: 5},
			expFilter: &domain.OrderFilter{Limit: 5},
			repoErr:   errors.New("connection reset"),
			expError:  domain.ErrInternal,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			repo := mock.NewMockRepository(mockCtrl)
			if test.expFilter != nil {
				repo.EXPECT().ListOrders(gomock.Any(), *test.expFilter).
					Return([]*domain.Order{{ID: 1}}, test.repoErr)
			}

			s := newMockService(t, repo, nil, nil)
			list, err := s.ListOrders(context.Background(), test.filter)
			if test.expError != nil {
				assert.ErrorIs(t, err, test.expError)
				assert.Nil(t, list)
				return
			}
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}
