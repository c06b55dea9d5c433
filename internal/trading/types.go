package trading

import (
	"github.com/tommytrillva/memecoinbot/internal/order"
	"github.com/tommytrillva/memecoinbot/internal/risk"
)

// Receipt is returned synchronously at admission.
// FilledQuantity and AveragePrice stay 0 until fills are simulated or reported by a venue.
type Receipt struct {
	Success        bool    `json:"success"`
	Message        string  `json:"message"`
	OrderID        string  `json:"orderId,omitempty"`
	FilledQuantity float64 `json:"filledQuantity"`
	AveragePrice   float64 `json:"averagePrice"`
}

// TradeUpdate reports the admission or execution outcome of an order.
type TradeUpdate struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// AlertUpdate is an advisory risk warning.
type AlertUpdate struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// StatusReport is a text rendering of the position book.
type StatusReport struct {
	Summary   string   `json:"summary"`
	Positions []string `json:"positions"`
	Exposure  float64  `json:"exposure"`
}

// Service is the admission and notification API consumed by presentation layers.
type Service interface {
	Buy(req order.Request) Receipt
	Sell(req order.Request) Receipt
	Status(symbol string) StatusReport
	UpdateMarkPrice(symbol string, price float64)
	UpdateRiskLimits(limits risk.Limits)

	SubscribeToTradeUpdates(fn func(TradeUpdate))
	SubscribeToAlerts(fn func(AlertUpdate))
	SubscribeToStatusUpdates(fn func(StatusReport))
}

var _ Service = (*Engine)(nil)
