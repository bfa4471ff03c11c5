package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/port/mock"
	"github.com/MikeRez0/orderpay/internal/core/service"
	"github.com/golang/mock/gomock"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockValidator_Check(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	catalog := mock.NewMockCatalog(mockCtrl)
	catalog.EXPECT().GetProduct(gomock.Any(), uint64(2)).Return(cable, nil).Times(1)
	catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil).Times(1)

	v := service.NewStockValidator(catalog)
	checks, err := v.Check(context.Background(), []domain.OrderLine{
		{ProductID: 2, Quantity: 2},
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 2},
	})
	require.NoError(t, err)
	require.Len(t, checks, 2)

	assert.Equal(t, uint64(2), checks[0].Product.ID)
	assert.Equal(t, 4, checks[0].Requested)
	assert.False(t, checks[0].Available)

	assert.Equal(t, uint64(1), checks[1].Product.ID)
	assert.Equal(t, 4, checks[1].Requested)
	assert.True(t, checks[1].Available)
}

func TestStockValidator_Validate(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	soldOut := &domain.Product{ID: 4, Price: decimal.One, Status: domain.ProductStatusOutOfStock}

	type validateTest struct {
		name     string
		lines    []domain.OrderLine
		mock     func(catalog *mock.MockCatalog)
		expError error
	}

	tests := []validateTest{
		{
			name:  "all available",
			lines: []domain.OrderLine{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 3}},
			mock: func(catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil)
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(2)).Return(cable, nil)
			},
		},
		{
			name:  "out of stock",
			lines: []domain.OrderLine{{ProductID: 1, Quantity: 1}, {ProductID: 4, Quantity: 1}},
			mock: func(catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(router, nil)
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(4)).Return(soldOut, nil)
			},
			expError: &domain.InsufficientStockError{ProductID: 4, Requested: 1, Available: 0},
		},
		{
			name:  "catalog down",
			lines: []domain.OrderLine{{ProductID: 1, Quantity: 1}},
			mock: func(catalog *mock.MockCatalog) {
				catalog.EXPECT().GetProduct(gomock.Any(), uint64(1)).Return(nil, errors.New("timeout"))
			},
			expError: errors.New("get product 1: timeout"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			catalog := mock.NewMockCatalog(mockCtrl)
			test.mock(catalog)

			products, err := service.NewStockValidator(catalog).Validate(context.Background(), test.lines)
			if test.expError != nil {
				assert.EqualError(t, err, test.expError.Error())
				assert.Nil(t, products)
				return
			}
			require.NoError(t, err)
			assert.Len(t, products, len(test.lines))
		})
	}
}
