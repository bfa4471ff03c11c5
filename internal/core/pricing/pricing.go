// Package pricing extracts VAT from tax-inclusive retail prices.
package pricing

import (
	"fmt"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"github.com/govalues/decimal"
)

// MoneyScale is the number of fractional digits kept for amounts.
const MoneyScale = 2

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal    decimal.Decimal
	VATAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

type Calculator struct {
	vatRate decimal.Decimal
	divisor decimal.Decimal
}

func NewCalculator(vatRate decimal.Decimal) (*Calculator, error) {
	if vatRate.IsNeg() {
		return nil, fmt.Errorf("vat rate must not be negative: %s", vatRate)
	}
	divisor, err := decimal.One.Add(vatRate)
	if err != nil {
		return nil, fmt.Errorf("vat rate: %w", err)
	}
	return &Calculator{vatRate: vatRate, divisor: divisor}, nil
}

func (c *Calculator) VATRate() decimal.Decimal {
	return c.vatRate
}

// Calculate sums the lines and splits the tax-inclusive total into subtotal
// and VAT. The subtotal is total/(1+rate) rounded half-up to cents and the
// VAT is the remainder, so Subtotal+VATAmount == TotalAmount always holds.
func (c *Calculator) Calculate(lines []Line) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, domain.NewValidationError("items", "at least one item is required")
	}

	total := decimal.Zero
	for i, l := range lines {
		lineTotal, err := LineTotal(l.UnitPrice, l.Quantity)
		if err != nil {
			return Totals{}, fmt.Errorf("line %d: %w", i, err)
		}
		total, err = total.Add(lineTotal)
		if err != nil {
			return Totals{}, domain.NewValidationError("items", err.Error())
		}
	}

	q, err := total.Quo(c.divisor)
	if err != nil {
		return Totals{}, domain.NewValidationError("items", err.Error())
	}
	subtotal := RoundHalfUp(q, MoneyScale)
	vat, err := total.Sub(subtotal)
	if err != nil {
		return Totals{}, domain.NewValidationError("items", err.Error())
	}

	return Totals{
		Subtotal:    subtotal.Pad(MoneyScale),
		VATAmount:   vat.Pad(MoneyScale),
		TotalAmount: total.Pad(MoneyScale),
	}, nil
}

// LineTotal multiplies a VAT-inclusive unit price by the quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) (decimal.Decimal, error) {
	if quantity < 1 {
		return decimal.Zero, domain.NewValidationError("quantity", "must be at least 1")
	}
	if !unitPrice.IsPos() {
		return decimal.Zero, domain.NewValidationError("price", "must be positive")
	}
	price := unitPrice.Trim(MoneyScale)
	if price.Scale() > MoneyScale {
		return decimal.Zero, domain.NewValidationError("price",
			fmt.Sprintf("%s has more than %d fractional digits", unitPrice, MoneyScale))
	}
	qty, err := decimal.New(int64(quantity), 0)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("quantity", err.Error())
	}
	total, err := price.Mul(qty)
	if err != nil {
		return decimal.Zero, domain.NewValidationError("price", err.Error())
	}
	return total.Pad(MoneyScale), nil
}

// RoundHalfUp rounds away from zero on a tie; decimal.Round is half-to-even.
func RoundHalfUp(d decimal.Decimal, scale int) decimal.Decimal {
	if d.Scale() <= scale {
		return d
	}
	half := decimal.MustNew(5, scale+1)
	if d.IsNeg() {
		half = half.Neg()
	}
	shifted, err := d.Add(half)
	if err != nil {
		return d.Round(scale)
	}
	return shifted.Trunc(scale)
}
