package pricing_test

import (
	"errors"
	"testing"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/MikeRez0/orderpay/internal/core/pricing"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculator_Calculate(t *testing.T) {
	calc, err := pricing.NewCalculator(decimal.MustParse("0.15"))
	require.NoError(t, err)

	type calcTest struct {
		name        string
		lines       []pricing.Line
		expSubtotal string
		expVAT      string
		expTotal    string
		expError    error
	}

	tests := []calcTest{
		{
			name:        "single line 1150",
			lines:       []pricing.Line{{UnitPrice: decimal.MustParse("1150.00"), Quantity: 1}},
			expSubtotal: "1000.00",
			expVAT:      "150.00",
			expTotal:    "1150.00",
		},
		{
			name: "several lines",
			lines: []pricing.Line{
				{UnitPrice: decimal.MustParse("575"), Quantity: 2},
				{UnitPrice: decimal.MustParse("11.50"), Quantity: 10},
			},
			expSubtotal: "1100.00",
			expVAT:      "165.00",
			expTotal:    "1265.00",
		},
		{
			// 100 / 1.15 = 86.9565... -> 86.96
			name:        "rounding",
			lines:       []pricing.Line{{UnitPrice: decimal.MustParse("100"), Quantity: 1}},
			expSubtotal: "86.96",
			expVAT:      "13.04",
			expTotal:    "100.00",
		},
		{
			// 0.01 / 1.15 = 0.0087 -> 0.01, nothing left for VAT
			name:        "cents",
			lines:       []pricing.Line{{UnitPrice: decimal.MustParse("0.01"), Quantity: 1}},
			expSubtotal: "0.01",
			expVAT:      "0.00",
			expTotal:    "0.01",
		},
		{
			name:     "empty",
			lines:    nil,
			expError: domain.ErrValidation,
		},
		{
			name:     "zero quantity",
			lines:    []pricing.Line{{UnitPrice: decimal.MustParse("10"), Quantity: 0}},
			expError: domain.ErrValidation,
		},
		{
			name:     "negative price",
			lines:    []pricing.Line{{UnitPrice: decimal.MustParse("-10"), Quantity: 1}},
			expError: domain.ErrValidation,
		},
		{
			name:     "sub-cent price",
			lines:    []pricing.Line{{UnitPrice: decimal.MustParse("10.005"), Quantity: 1}},
			expError: domain.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			totals, err := calc.Calculate(test.lines)
			if test.expError != nil {
				assert.True(t, errors.Is(err, test.expError), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expSubtotal, totals.Subtotal.String())
			assert.Equal(t, test.expVAT, totals.VATAmount.String())
			assert.Equal(t, test.expTotal, totals.TotalAmount.String())
		})
	}
}

func TestCalculator_SumInvariant(t *testing.T) {
	for _, rate := range []string{"0", "0.05", "0.15", "0.2"} {
		calc, err := pricing.NewCalculator(decimal.MustParse(rate))
		require.NoError(t, err)

		for cents := int64(1); cents <= 5000; cents += 7 {
			for qty := 1; qty <= 3; qty++ {
				price := decimal.MustNew(cents, 2)
				totals, err := calc.Calculate([]pricing.Line{{UnitPrice: price, Quantity: qty}})
				require.NoError(t, err)

				sum, err := totals.Subtotal.Add(totals.VATAmount)
				require.NoError(t, err)
				assert.True(t, sum.Cmp(totals.TotalAmount) == 0,
					"rate %s price %s qty %d: %s + %s != %s",
					rate, price, qty, totals.Subtotal, totals.VATAmount, totals.TotalAmount)
				assert.Equal(t, pricing.MoneyScale, totals.Subtotal.Scale())
				assert.False(t, totals.VATAmount.IsNeg())
			}
		}
	}
}

func TestNewCalculator_NegativeRate(t *testing.T) {
	_, err := pricing.NewCalculator(decimal.MustParse("-0.1"))
	assert.Error(t, err)
}

func TestRoundHalfUp(t *testing.T) {
	tests := map[string]string{
		"0.125":   "0.13",
		"0.135":   "0.14",
		"0.124":   "0.12",
		"2.5":     "2.5",
		"-0.125":  "-0.13",
		"86.9565": "86.96",
	}
	for in, exp := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, exp, pricing.RoundHalfUp(decimal.MustParse(in), 2).String())
		})
	}
}
