package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MikeRez0/orderpay/internal/adapter/storage/memory"
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

const callbackURL = "https://shop.example/webhooks/gateway/payment"

type env struct {
	store      *memory.Store
	gateway    *mock.MockPaymentGateway
	svc        *service.Service
	reconciler *service.Reconciler
}

func newEnv(t *testing.T, opts ...func(c *service.CheckoutConfig)) *env {
	t.Helper()
	ctrl := gomock.NewController(t)

	store := memory.New()
	store.PutCustomer(&domain.Customer{ID: 7, FirstName: "Abebe", LastName: "Kebede", Email: "abebe@example.com"})
	store.PutProduct(&domain.Product{ID: 1, Name: "Router", SerialNumber: "SN-R-1",
		Price: decimal.MustParse("115.00"), Status: domain.ProductStatusActive, StockQuantity: 5})
	store.PutProduct(&domain.Product{ID: 2, Name: "Cable", SerialNumber: "SN-C-2",
		Price: decimal.MustParse("50.00"), Status: domain.ProductStatusActive, StockQuantity: 1})

	calc, err := pricing.NewCalculator(decimal.MustParse("0.15"))
	require.NoError(t, err)

	checkout := service.CheckoutConfig{Currency: "ETB", CallbackURL: callbackURL, ReturnURL: "https://shop.example/thanks"}
	for _, opt := range opts {
		opt(&checkout)
	}

	gateway := mock.NewMockPaymentGateway(ctrl)
	svc, err := service.NewService(store, store, store, gateway, calc, reference.NewGenerator("ST"),
		checkout, zap.NewNop())
	require.NoError(t, err)

	reconciler, err := service.NewReconciler(store, store, nil, zap.NewNop())
	require.NoError(t, err)

	return &env{store: store, gateway: gateway, svc: svc, reconciler: reconciler}
}

func (e *env) order(t *testing.T, lines ...domain.OrderLine) *domain.Order {
	t.Helper()
	if len(lines) == 0 {
		lines = []domain.OrderLine{{ProductID: 1, Quantity: 2}}
	}
	order, err := e.svc.CreateOrder(context.Background(), &domain.OrderDraft{CustomerID: 7, Items: lines})
	require.NoError(t, err)
	return order
}

func (e *env) checkout(t *testing.T, orderID uint64) string {
	t.Helper()
	e.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.CheckoutRequest) (*domain.CheckoutHandle, error) {
			return &domain.CheckoutHandle{CheckoutURL: "https://checkout.example/" + req.Reference}, nil
		})
	handle, err := e.svc.InitializePayment(context.Background(), orderID)
	require.NoError(t, err)
	return handle.PaymentReference
}

func TestService_InitializePayment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order := e.order(t)

	var sent *domain.CheckoutRequest
	e.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.CheckoutRequest) (*domain.CheckoutHandle, error) {
			sent = req
			return &domain.CheckoutHandle{CheckoutURL: "https://checkout.example/abc", GatewayReference: "APxyz"}, nil
		})

	handle, err := e.svc.InitializePayment(ctx, order.ID)
	require.NoError(t, err)

	assert.Equal(t, "https://checkout.example/abc", handle.CheckoutURL)
	assert.Regexp(t, `^PAY_\d{8}_`+order.Number+`_\d{4}$`, handle.PaymentReference)

	require.NotNil(t, sent)
	assert.Equal(t, handle.PaymentReference, sent.Reference)
	assert.Equal(t, "230.00", sent.Amount.String())
	assert.Equal(t, "ETB", sent.Currency)
	assert.Equal(t, "abebe@example.com", sent.Payer.Email)
	assert.Equal(t, callbackURL, sent.CallbackURL)

	payment, err := e.svc.GetPaymentByReference(ctx, handle.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "APxyz", payment.GatewayReference)

	stored, err := e.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentPending, stored.Status)

	paid, err := e.svc.IsFullyPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, paid)
}

func TestService_InitializePaymentGatewayFailure(t *testing.T) {
	type failureTest struct {
		name       string
		gatewayErr error
		retryAfter time.Duration
	}

	tests := []failureTest{
		{
			name:       "throttled",
			gatewayErr: &domain.GatewayError{RetryAfter: 30 * time.Second, Err: errors.New("429")},
			retryAfter: 30 * time.Second,
		},
		{
			name:       "bare error",
			gatewayErr: errors.New("connection refused"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			order := e.order(t)

			e.gateway.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(nil, test.gatewayErr)

			_, err := e.svc.InitializePayment(ctx, order.ID)
			require.ErrorIs(t, err, domain.ErrGateway)
			var gwErr *domain.GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, test.retryAfter, gwErr.RetryAfter)

			payments, err := e.svc.ListPayments(ctx, order.ID)
			require.NoError(t, err)
			require.Len(t, payments, 1)
			assert.Equal(t, domain.PaymentStatusFailed, payments[0].Status)
			assert.Contains(t, payments[0].FailureReason, "payment initialization failed")

			stored, err := e.svc.GetOrder(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusPaymentFailed, stored.Status)

			// a new attempt opens a fresh payment
			ref := e.checkout(t, order.ID)
			assert.NotEqual(t, payments[0].Reference, ref)

			stored, err = e.svc.GetOrder(ctx, order.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OrderStatusPaymentPending, stored.Status)
		})
	}
}

func TestService_InitializePaymentRejected(t *testing.T) {
	ctx := context.Background()

	t.Run("already paid", func(t *testing.T) {
		e := newEnv(t)
		order := e.order(t)
		ref := e.checkout(t, order.ID)

		_, err := e.reconciler.Reconcile(ctx, domain.ChannelPayment, chargeSuccess(ref))
		require.NoError(t, err)

		_, err = e.svc.InitializePayment(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadyPaid)

		paid, err := e.svc.IsFullyPaid(ctx, order.ID)
		require.NoError(t, err)
		assert.True(t, paid)
	})

	t.Run("cancelled order", func(t *testing.T) {
		e := newEnv(t)
		order := e.order(t)
		_, err := e.svc.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusCancelled)
		require.NoError(t, err)

		_, err = e.svc.InitializePayment(ctx, order.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("unknown order", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.svc.InitializePayment(ctx, 404)
		assert.ErrorIs(t, err, domain.ErrDataNotFound)
	})
}

func TestService_InitializePaymentWhilePending(t *testing.T) {
	type pendingTest struct {
		name      string
		ttl       time.Duration
		openedAgo time.Duration
		expError  error
		expCount  int
	}

	tests := []pendingTest{
		{name: "open checkout blocks", openedAgo: time.Hour, expError: domain.ErrPaymentInProgress, expCount: 1},
		{name: "within ttl", ttl: time.Hour, openedAgo: time.Minute, expError: domain.ErrPaymentInProgress, expCount: 1},
		{name: "abandoned after ttl", ttl: 30 * time.Minute, openedAgo: time.Hour, expCount: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			e := newEnv(t, func(c *service.CheckoutConfig) { c.PendingTTL = test.ttl })
			ctx := context.Background()
			order := e.order(t)

			_, err := e.store.CreatePayment(ctx, order.ID,
				func(_ context.Context, st *port.PaymentState) (*domain.Payment, error) {
					st.Order.Status = domain.OrderStatusPaymentPending
					opened := time.Now().Add(-test.openedAgo)
					return &domain.Payment{
						Reference: "PAY_OPEN_1",
						Amount:    order.TotalAmount,
						Currency:  "ETB",
						Status:    domain.PaymentStatusPending,
						CreatedAt: opened,
						UpdatedAt: opened,
					}, nil
				})
			require.NoError(t, err)

			if test.expError != nil {
				_, err = e.svc.InitializePayment(ctx, order.ID)
				assert.ErrorIs(t, err, test.expError)
			} else {
				ref := e.checkout(t, order.ID)
				payment, err := e.svc.GetPaymentByReference(ctx, ref)
				require.NoError(t, err)
				assert.Equal(t, "230.00", payment.Amount.String())
			}

			payments, err := e.svc.ListPayments(ctx, order.ID)
			require.NoError(t, err)
			assert.Len(t, payments, test.expCount)
		})
	}
}

func TestOutstanding(t *testing.T) {
	order := &domain.Order{TotalAmount: decimal.MustParse("230.00")}
	payments := []*domain.Payment{
		{Amount: decimal.MustParse("100.00"), Status: domain.PaymentStatusSuccess},
		{Amount: decimal.MustParse("130.00"), Status: domain.PaymentStatusFailed},
		{Amount: decimal.MustParse("30.00"), Status: domain.PaymentStatusPending},
	}

	rest, err := service.Outstanding(order, payments)
	require.NoError(t, err)
	assert.Equal(t, "130.00", rest.String())

	payments = append(payments, &domain.Payment{Amount: decimal.MustParse("200.00"), Status: domain.PaymentStatusSuccess})
	rest, err = service.Outstanding(order, payments)
	require.NoError(t, err)
	assert.True(t, rest.IsZero())
}
