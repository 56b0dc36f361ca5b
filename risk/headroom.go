package risk

import (
	"github.com/rustyeddy/pretrade/account"
	"github.com/shopspring/decimal"
)

// Headroom returns the largest size an order at price could have and still
// pass both limits against st. Zero means nothing fits.
func Headroom(st account.State, price int64, scale int32) uint64 {
	if price <= 0 {
		return 0
	}
	remaining := decimal.NewFromFloat(st.CurrentMaxExposure).Sub(decimal.NewFromFloat(st.CurrentExposure))
	if !remaining.IsPositive() {
		return 0
	}

	units := remaining.Div(UnitPrice(price, scale)).Floor()
	if units.GreaterThanOrEqual(decimal.NewFromInt(int64(st.CurrentMaxOrderSize))) {
		return st.CurrentMaxOrderSize
	}
	return uint64(units.IntPart())
}
