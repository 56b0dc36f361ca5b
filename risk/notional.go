package risk

import "github.com/shopspring/decimal"

// DefaultPriceScale treats prices as cents.
const DefaultPriceScale = 2

// UnitPrice converts a fixed point price into currency units.
func UnitPrice(price int64, scale int32) decimal.Decimal {
	return decimal.New(price, -scale)
}

// Notional is price times size, computed exactly.
func Notional(price int64, size uint64, scale int32) decimal.Decimal {
	return UnitPrice(price, scale).Mul(decimal.NewFromInt(int64(size)))
}
