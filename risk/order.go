package risk

import (
	"errors"
	"fmt"
	"math"
)

// Side is the order direction.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Sign is +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == Sell {
		return -1
	}
	return 1
}

func (s Side) Valid() bool { return s == Buy || s == Sell }

// OrderRequest is an inbound order awaiting a risk decision. Price is a fixed
// point amount in the smallest currency unit; the engine's price scale says
// how many decimal places that unit has.
type OrderRequest struct {
	OrderID      string
	AccountID    string
	InstrumentID string
	Price        int64
	Size         uint64
	Side         Side
}

var ErrInvalidOrder = errors.New("invalid order")

func (o OrderRequest) Validate() error {
	switch {
	case o.OrderID == "":
		return fmt.Errorf("%w: order_id is required", ErrInvalidOrder)
	case o.AccountID == "":
		return fmt.Errorf("%w: account_id is required", ErrInvalidOrder)
	case o.InstrumentID == "":
		return fmt.Errorf("%w: instrument_id is required", ErrInvalidOrder)
	case o.Price <= 0:
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	case o.Size == 0:
		return fmt.Errorf("%w: size must be positive", ErrInvalidOrder)
	case o.Size > math.MaxInt64:
		return fmt.Errorf("%w: size %d out of range", ErrInvalidOrder, o.Size)
	case !o.Side.Valid():
		return fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, o.Side)
	}
	return nil
}

// SignedQuantity is the position change an approval books.
func (o OrderRequest) SignedQuantity() int64 {
	return o.Side.Sign() * int64(o.Size)
}
