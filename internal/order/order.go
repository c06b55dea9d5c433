package order

import (
	"strconv"
	"sync/atomic"
)

// Side is the direction of an order.
type Side uint8

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// Signed returns qty with the sign of the side: +qty for buys, -qty for sells.
func (s Side) Signed(qty float64) float64 {
	switch s {
	case SideBuy:
		return qty
	case SideSell:
		return -qty
	default:
		return 0
	}
}

// Request is what callers submit to buy or sell.
// A LimitPrice of 0 means no limit.
type Request struct {
	Symbol     string  `json:"symbol"`
	Quantity   float64 `json:"quantity"`
	LimitPrice float64 `json:"limitPrice,omitempty"`
}

// Order is an admitted request. It is never mutated after creation.
type Order struct {
	ID         string
	Symbol     string
	Quantity   float64
	LimitPrice float64
	Side       Side
}

// HasLimit reports whether the order carries a limit price.
func (o Order) HasLimit() bool {
	return o.LimitPrice > 0
}

// SignedQuantity is the position delta applied when the order fills.
func (o Order) SignedQuantity() float64 {
	return o.Side.Signed(o.Quantity)
}

// Sequence generates process-unique order ids of the form "ORD-<n>", starting at 1.
type Sequence struct {
	n atomic.Uint64
}

// Next returns the next order id.
func (s *Sequence) Next() string {
	return "ORD-" + strconv.FormatUint(s.n.Add(1), 10)
}
