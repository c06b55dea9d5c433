package trading

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/internal/bus"
	"github.com/tommytrillva/memecoinbot/internal/obs"
	"github.com/tommytrillva/memecoinbot/internal/order"
	"github.com/tommytrillva/memecoinbot/internal/risk"
	"github.com/tommytrillva/memecoinbot/internal/state"
	"github.com/tommytrillva/memecoinbot/pkg/exception"
	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

const (
	DefaultInterval = 100 * time.Millisecond

	alertTitle = "Risk Warning"

	msgNotRunning      = "Engine is not running; unable to accept orders."
	msgEmptySymbol     = "Symbol must be specified."
	msgInvalidQuantity = "Quantity must be greater than zero."
	msgQueued          = "Order queued for execution."
)

// Options configures an Engine.
type Options struct {
	Limits    risk.Limits
	Delegator order.Delegator
	Logger    logger.Logger
	Metrics   *obs.Metrics
	// Interval is the pause between execution batches. Zero means DefaultInterval.
	Interval time.Duration
}

// Engine admits orders through the risk gate, routes them on a background
// goroutine after a second risk evaluation and keeps the position book.
type Engine struct {
	log       logger.Logger
	metrics   *obs.Metrics
	delegator order.Delegator
	interval  time.Duration
	seq       order.Sequence

	lifecycle sync.Mutex
	running   atomic.Bool
	quit      chan struct{}
	done      chan struct{}

	// mu guards queue, book and risk.
	mu    sync.Mutex
	queue []order.Order
	book  *state.Book
	risk  *risk.Engine

	trades   *bus.Topic[TradeUpdate]
	alerts   *bus.Topic[AlertUpdate]
	statuses *bus.Topic[StatusReport]
}

// New creates a stopped engine.
func New(opt Options) *Engine {
	log := logger.OrDiscard(opt.Logger)
	interval := opt.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		log:       log,
		metrics:   opt.Metrics,
		delegator: opt.Delegator,
		interval:  interval,
		book:      state.NewBook(),
		risk:      risk.NewEngine(opt.Limits),
		trades:    bus.NewTopic[TradeUpdate]("trade updates", log),
		alerts:    bus.NewTopic[AlertUpdate]("alerts", log),
		statuses:  bus.NewTopic[StatusReport]("status updates", log),
	}
}

// Start launches the execution loop. It is a no-op while running.
func (e *Engine) Start() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	if e.running.Load() {
		return nil
	}
	if e.delegator == nil {
		return exception.ErrOrderNilDelegator
	}

	quit, done := make(chan struct{}), make(chan struct{})
	e.quit, e.done = quit, done

	e.mu.Lock()
	e.running.Store(true)
	e.mu.Unlock()

	go e.run(quit, done)
	e.log.Infof("engine started, interval: %s, subscribers: trades=%d alerts=%d statuses=%d",
		e.interval, e.trades.Len(), e.alerts.Len(), e.statuses.Len())
	return nil
}

// Stop signals the execution loop and waits until it has routed every order
// queued before the call. Safe to call repeatedly.
func (e *Engine) Stop() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		return
	}
	e.running.Store(false)
	e.mu.Unlock()

	close(e.quit)
	<-e.done

	e.mu.Lock()
	positions := e.book.Count()
	e.mu.Unlock()
	e.log.Infof("engine stopped, positions: %d", positions)
}

// IsRunning reports whether the engine accepts orders.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// Buy submits a buy order.
func (e *Engine) Buy(req order.Request) Receipt {
	return e.submit(req, order.SideBuy)
}

// Sell submits a sell order.
func (e *Engine) Sell(req order.Request) Receipt {
	return e.submit(req, order.SideSell)
}

// UpdateMarkPrice overwrites the mark price of a symbol.
func (e *Engine) UpdateMarkPrice(symbol string, price float64) {
	e.mu.Lock()
	e.book.SetMarkPrice(symbol, price)
	e.mu.Unlock()
	e.metrics.IncMarkUpdate()
}

// MarkPrice returns the last mark price of a symbol, 0 when unknown.
func (e *Engine) MarkPrice(symbol string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.MarkPrice(symbol)
}

// UpdateRiskLimits replaces the limits. Queued orders are evaluated against
// them at execution; nothing is cancelled retroactively.
func (e *Engine) UpdateRiskLimits(limits risk.Limits) {
	e.mu.Lock()
	e.risk.SetLimits(limits)
	e.mu.Unlock()
}

// RiskLimits returns the active limits.
func (e *Engine) RiskLimits() risk.Limits {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.risk.Limits()
}

// Position returns the signed quantity held for a symbol.
func (e *Engine) Position(symbol string) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Position(symbol)
}

// Snapshot returns the position book with marks and notionals.
func (e *Engine) Snapshot() state.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot()
}

func (e *Engine) SubscribeToTradeUpdates(fn func(TradeUpdate)) {
	e.trades.Subscribe(fn)
}

func (e *Engine) SubscribeToAlerts(fn func(AlertUpdate)) {
	e.alerts.Subscribe(fn)
}

func (e *Engine) SubscribeToStatusUpdates(fn func(StatusReport)) {
	e.statuses.Subscribe(fn)
}

func (e *Engine) submit(req order.Request, side order.Side) Receipt {
	if !e.running.Load() {
		return Receipt{Message: msgNotRunning}
	}
	if req.Symbol == "" {
		return Receipt{Message: msgEmptySymbol}
	}
	if !(req.Quantity > 0) {
		return Receipt{Message: msgInvalidQuantity}
	}

	o := order.Order{
		ID:         e.seq.Next(),
		Symbol:     req.Symbol,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		Side:       side,
	}

	start := time.Now()
	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		return Receipt{Message: msgNotRunning, OrderID: o.ID}
	}
	decision := e.risk.Evaluate(o, e.book)
	if decision.Allowed() {
		e.queue = append(e.queue, o)
	}
	e.mu.Unlock()
	e.metrics.ObserveRiskEval(time.Since(start))
	e.metrics.ObserveOrder(obs.StageAdmission, decision.Allowed())

	if !decision.Allowed() {
		e.metrics.IncRiskRejection(obs.StageAdmission, decision.Reason.String())
		msg := fmt.Sprintf("Risk controls rejected order for symbol %s (%s)", o.Symbol, decision.Reason.Text())
		e.trades.Publish(TradeUpdate{OrderID: o.ID, Message: msg})
		return Receipt{Message: msg, OrderID: o.ID}
	}

	e.trades.Publish(TradeUpdate{OrderID: o.ID, Message: acceptedMessage(o), Success: true})
	return Receipt{Success: true, Message: msgQueued, OrderID: o.ID}
}

func (e *Engine) run(quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		e.route(ctx, e.swapQueue())
		e.sweep()

		select {
		case <-quit:
			e.route(ctx, e.swapQueue())
			return
		case <-ticker.C:
		}
	}
}

func (e *Engine) swapQueue() []order.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	pending := e.queue
	e.queue = nil
	return pending
}

func (e *Engine) route(ctx context.Context, orders []order.Order) {
	for _, o := range orders {
		start := time.Now()
		e.mu.Lock()
		decision := e.risk.Evaluate(o, e.book)
		e.mu.Unlock()
		e.metrics.ObserveRiskEval(time.Since(start))

		if !decision.Allowed() {
			e.metrics.ObserveOrder(obs.StageExecution, false)
			e.metrics.IncRiskRejection(obs.StageExecution, decision.Reason.String())
			msg := fmt.Sprintf("Risk control rejected order for symbol %s (%s)", o.Symbol, decision.Reason.Text())
			e.log.Warnf("execution rejected %s: %s", o.ID, msg)
			e.trades.Publish(TradeUpdate{OrderID: o.ID, Message: msg})
			continue
		}

		if err := e.send(ctx, o); err != nil {
			e.metrics.ObserveOrder(obs.StageExecution, false)
			e.log.Errorf("route order %s, err: %+v", o.ID, err)
			e.trades.Publish(TradeUpdate{OrderID: o.ID, Message: fmt.Sprintf("Routing failed for order %s: %v", o.ID, err)})
			continue
		}

		e.mu.Lock()
		e.book.ApplyFill(o)
		e.mu.Unlock()
		e.metrics.ObserveOrder(obs.StageExecution, true)

		e.trades.Publish(TradeUpdate{OrderID: o.ID, Message: executedMessage(o), Success: true})
		e.statuses.Publish(e.Status(""))
	}
}

func (e *Engine) send(ctx context.Context, o order.Order) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(exception.ErrOrderRoutingFailed, "delegator panicked: %v", r)
		}
	}()
	return e.delegator.Send(ctx, o)
}

func (e *Engine) sweep() {
	e.mu.Lock()
	breaches := e.risk.Sweep(e.book)
	e.mu.Unlock()

	for _, b := range breaches {
		e.metrics.IncAlert()
		e.log.Debugf("risk sweep: %s", b.Message())
		e.alerts.Publish(AlertUpdate{Title: alertTitle, Body: b.Message()})
	}
}

func acceptedMessage(o order.Order) string {
	msg := "Accepted order for " + o.Side.String() + " " + formatQty(o.Quantity) + " of " + o.Symbol
	if o.HasLimit() {
		msg += " @ " + formatQty(o.LimitPrice)
	}
	return msg
}

func executedMessage(o order.Order) string {
	msg := "Executed " + o.Side.String() + " order for " + o.Symbol + " (" + formatQty(o.Quantity) + ")"
	if o.HasLimit() {
		msg += " @ " + formatQty(o.LimitPrice)
	}
	return msg
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
