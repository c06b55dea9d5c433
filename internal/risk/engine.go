package risk

import (
	"fmt"
	"math"

	"github.com/tommytrillva/memecoinbot/internal/order"
)

// Limits defines the risk limits. A value of 0 disables that check.
type Limits struct {
	MaxPosition float64 `json:"maxPosition"`
	MaxExposure float64 `json:"maxExposure"`
}

// StateView is the read side of the position book the gate evaluates against.
type StateView interface {
	Position(symbol string) float64
	MarkPrice(symbol string) float64
	Notional(symbol string) float64
	Symbols() []string
}

// Action is the outcome of an evaluation.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason explains a denial or a breach.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonPositionLimit
	ReasonExposureLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonPositionLimit:
		return "position_limit"
	case ReasonExposureLimit:
		return "exposure_limit"
	default:
		return "none"
	}
}

// Text is the human-readable form used in rejection messages.
func (r Reason) Text() string {
	switch r {
	case ReasonPositionLimit:
		return "position limit exceeded"
	case ReasonExposureLimit:
		return "exposure limit exceeded"
	default:
		return "no limit breached"
	}
}

// Decision is the result of evaluating one order.
type Decision struct {
	OrderID           string
	Symbol            string
	Action            Action
	Reason            Reason
	CurrentPos        float64
	ProjectedPos      float64
	ProjectedExposure float64
	Limits            Limits
}

// Allowed reports whether the order may proceed.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Engine evaluates risk decisions against the configured limits.
// It keeps no state besides the limits and is not safe for concurrent use.
type Engine struct {
	limits Limits
}

// NewEngine creates a risk engine.
func NewEngine(limits Limits) *Engine {
	return &Engine{limits: limits}
}

// Limits returns the active limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// SetLimits replaces the limits for every later evaluation.
func (e *Engine) SetLimits(limits Limits) {
	e.limits = limits
}

// Evaluate checks the projected position and the projected notional exposure of the order.
func (e *Engine) Evaluate(o order.Order, view StateView) Decision {
	current := view.Position(o.Symbol)
	projected := current + o.SignedQuantity()

	decision := Decision{
		OrderID:      o.ID,
		Symbol:       o.Symbol,
		Action:       ActionAllow,
		Reason:       ReasonNone,
		CurrentPos:   current,
		ProjectedPos: projected,
		Limits:       e.limits,
	}

	if e.limits.MaxPosition > 0 && math.Abs(projected) > e.limits.MaxPosition {
		decision.Action = ActionDeny
		decision.Reason = ReasonPositionLimit
		return decision
	}

	exposure := math.Abs(projected * view.MarkPrice(o.Symbol))
	for _, symbol := range view.Symbols() {
		if symbol == o.Symbol {
			continue
		}
		exposure += view.Notional(symbol)
	}
	decision.ProjectedExposure = exposure

	if e.limits.MaxExposure > 0 && exposure > e.limits.MaxExposure {
		decision.Action = ActionDeny
		decision.Reason = ReasonExposureLimit
		return decision
	}

	return decision
}

// Breach is a limit violated by the current book.
type Breach struct {
	Reason Reason
	Symbol string
	Value  float64
	Limit  float64
}

// Message renders the breach for an alert body.
func (b Breach) Message() string {
	switch b.Reason {
	case ReasonPositionLimit:
		return fmt.Sprintf("Position limit breached for symbol %s (%g)", b.Symbol, b.Value)
	case ReasonExposureLimit:
		return fmt.Sprintf("Aggregate exposure limit breached (%g)", b.Value)
	default:
		return "Risk limit breached"
	}
}

// Sweep reports every breached per-symbol position limit and the aggregate exposure limit.
// It is advisory and never changes the book.
func (e *Engine) Sweep(view StateView) []Breach {
	var (
		breaches []Breach
		total    float64
	)
	for _, symbol := range view.Symbols() {
		total += view.Notional(symbol)
		qty := math.Abs(view.Position(symbol))
		if e.limits.MaxPosition > 0 && qty > e.limits.MaxPosition {
			breaches = append(breaches, Breach{
				Reason: ReasonPositionLimit,
				Symbol: symbol,
				Value:  qty,
				Limit:  e.limits.MaxPosition,
			})
		}
	}

	if e.limits.MaxExposure > 0 && total > e.limits.MaxExposure {
		breaches = append(breaches, Breach{
			Reason: ReasonExposureLimit,
			Value:  total,
			Limit:  e.limits.MaxExposure,
		})
	}
	return breaches
}
