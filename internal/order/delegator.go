package order

import (
	"context"
	"strconv"

	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

// Delegator routes an order that passed every risk gate to a venue.
type Delegator interface {
	Send(ctx context.Context, o Order) error
}

// DelegatorFunc adapts a function to Delegator.
type DelegatorFunc func(ctx context.Context, o Order) error

func (f DelegatorFunc) Send(ctx context.Context, o Order) error {
	return f(ctx, o)
}

// LogDelegator only logs the order. Venue adapters plug in here.
type LogDelegator struct {
	log logger.Logger
}

func NewLogDelegator(log logger.Logger) *LogDelegator {
	return &LogDelegator{log: logger.OrDiscard(log)}
}

func (d *LogDelegator) Send(_ context.Context, o Order) error {
	price := "market"
	if o.HasLimit() {
		price = strconv.FormatFloat(o.LimitPrice, 'f', -1, 64)
	}
	d.log.Infof("routing order: id=%s side=%s symbol=%s qty=%s price=%s",
		o.ID, o.Side, o.Symbol, strconv.FormatFloat(o.Quantity, 'f', -1, 64), price)
	return nil
}
