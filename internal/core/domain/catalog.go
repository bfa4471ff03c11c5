package domain

import "github.com/govalues/decimal"

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "ACTIVE"
	ProductStatusInactive   ProductStatus = "INACTIVE"
	ProductStatusOutOfStock ProductStatus = "OUT_OF_STOCK"
)

type Product struct {
	ID            uint64
	Name          string
	SerialNumber  string
	Price         decimal.Decimal
	Status        ProductStatus
	StockQuantity int
}

// Available reports whether the product can serve the requested quantity.
func (p *Product) Available(quantity int) bool {
	return p.Status == ProductStatusActive && p.StockQuantity >= quantity
}

type Customer struct {
	ID        uint64
	FirstName string
	LastName  string
	Email     string
}

type StockCheck struct {
	Product   *Product
	Requested int
	Available bool
}
