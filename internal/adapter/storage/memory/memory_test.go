package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ClaimTasksLease(t *testing.T) {
	s := New()
	now := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	task, err := domain.NewTask(domain.TaskInvoiceGeneration, "PAY_1", 1, nil)
	require.NoError(t, err)
	task.NextAttemptAt = now

	created, err := s.EnqueueTask(ctx, task)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.EnqueueTask(ctx, task)
	require.NoError(t, err)
	assert.False(t, created)

	claimed, err := s.ClaimTasks(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 1, claimed[0].Attempts)

	claimed, err = s.ClaimTasks(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed, "leased")

	// the worker died; the lease runs out
	now = now.Add(2 * time.Minute)
	claimed, err = s.ClaimTasks(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 2, claimed[0].Attempts)

	require.NoError(t, s.CompleteTask(ctx, task.ID))
	now = now.Add(time.Hour)
	claimed, err = s.ClaimTasks(ctx, 10, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestStore_ReserveStockRollsBack(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutProduct(&domain.Product{ID: 1, Price: decimal.One, Status: domain.ProductStatusActive, StockQuantity: 2})
	s.PutProduct(&domain.Product{ID: 2, Price: decimal.One, Status: domain.ProductStatusActive, StockQuantity: 1})

	order, err := s.CreateOrder(ctx, &domain.Order{
		Number:      "ST202405011234",
		CustomerID:  1,
		TotalAmount: decimal.MustParse("3.00"),
		Status:      domain.OrderStatusPending,
		Items: []*domain.OrderItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)

	_, err = s.CreatePayment(ctx, order.ID, func(_ context.Context, st *port.PaymentState) (*domain.Payment, error) {
		return &domain.Payment{Reference: "PAY_1", Amount: st.Order.TotalAmount, Status: domain.PaymentStatusPending}, nil
	})
	require.NoError(t, err)

	_, err = s.UpdatePaymentByReference(ctx, "PAY_1", func(ctx context.Context, st *port.PaymentState) error {
		require.NoError(t, st.Stock.ReserveStock(ctx, st.Order.Items))
		return domain.ErrInternal
	})
	assert.ErrorIs(t, err, domain.ErrInternal)

	for id, qty := range map[uint64]int{1: 2, 2: 1} {
		p, err := s.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, qty, p.StockQuantity)
		assert.Equal(t, domain.ProductStatusActive, p.Status)
	}

	_, err = s.UpdatePaymentByReference(ctx, "PAY_1", func(ctx context.Context, st *port.PaymentState) error {
		return st.Stock.ReserveStock(ctx, st.Order.Items)
	})
	require.NoError(t, err)

	p, err := s.GetProduct(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, p.StockQuantity)
	assert.Equal(t, domain.ProductStatusOutOfStock, p.Status)
}

func TestStore_ListOrders(t *testing.T) {
	s := New()
	ctx := context.Background()

	statuses := []domain.OrderStatus{
		domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusPending,
		domain.OrderStatusConfirmed, domain.OrderStatusPending,
	}
	for i, status := range statuses {
		_, err := s.CreateOrder(ctx, &domain.Order{
			Number:      fmt.Sprintf("ST%012d", i),
			CustomerID:  uint64(1 + i%2),
			Status:      status,
			TotalAmount: decimal.One,
		})
		require.NoError(t, err)
	}

	ids := func(list []*domain.Order) []uint64 {
		res := make([]uint64, 0, len(list))
		for _, o := range list {
			res = append(res, o.ID)
		}
		return res
	}

	tests := []struct {
		name   string
		filter domain.OrderFilter
		expIDs []uint64
	}{
		{name: "all newest first", filter: domain.OrderFilter{}, expIDs: []uint64{5, 4, 3, 2, 1}},
		{name: "by customer", filter: domain.OrderFilter{CustomerID: 2}, expIDs: []uint64{4, 2}},
		{name: "by status", filter: domain.OrderFilter{Status: domain.OrderStatusPending}, expIDs: []uint64{5, 3, 1}},
		{name: "page", filter: domain.OrderFilter{Limit: 2, Offset: 1}, expIDs: []uint64{4, 3}},
		{name: "past the end", filter: domain.OrderFilter{Offset: 5}, expIDs: []uint64{}},
		{name: "customer and status", filter: domain.OrderFilter{CustomerID: 1,
			Status: domain.OrderStatusPending, Limit: 1}, expIDs: []uint64{5}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			list, err := s.ListOrders(ctx, test.filter)
			require.NoError(t, err)
			assert.Equal(t, test.expIDs, ids(list))
		})
	}
}
