package bridge

import (
	"sort"
	"sync"
	"time"

	"github.com/tommytrillva/memecoinbot/internal/marketdata"
	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

// MarkPriceUpdater receives mark prices. Implemented by trading.Engine.
type MarkPriceUpdater interface {
	UpdateMarkPrice(symbol string, price float64)
}

// QuoteSubscriber runs quote polling subscriptions. Implemented by marketdata.Client.
type QuoteSubscriber interface {
	SubscribeToQuotes(mint string, callback marketdata.QuoteCallback, interval time.Duration) (marketdata.SubscriptionID, error)
	Unsubscribe(id marketdata.SubscriptionID)
}

// QuoteBridge forwards polled quotes of a watch list into the engine mark prices.
type QuoteBridge struct {
	updater    MarkPriceUpdater
	subscriber QuoteSubscriber
	log        logger.Logger

	mu   sync.Mutex
	subs map[string]marketdata.SubscriptionID
}

func NewQuoteBridge(updater MarkPriceUpdater, subscriber QuoteSubscriber, log logger.Logger) *QuoteBridge {
	return &QuoteBridge{
		updater:    updater,
		subscriber: subscriber,
		log:        logger.OrDiscard(log),
		subs:       map[string]marketdata.SubscriptionID{},
	}
}

// Start stops any previous run and subscribes every symbol. A symbol that fails
// to subscribe is logged and skipped. An empty list does nothing.
func (b *QuoteBridge) Start(symbols []string, interval time.Duration) {
	if len(symbols) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopLocked()
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		if _, ok := b.subs[symbol]; ok {
			continue
		}
		id, err := b.subscriber.SubscribeToQuotes(symbol, b.forward(symbol), interval)
		if err != nil {
			b.log.Errorf("subscribe quotes %s, err: %+v", symbol, err)
			continue
		}
		b.subs[symbol] = id
	}
	b.log.Infof("quote bridge started, symbols: %d, interval: %s", len(b.subs), interval)
}

// Stop unsubscribes every symbol. Safe when not running.
func (b *QuoteBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

// IsRunning reports whether any symbol is subscribed.
func (b *QuoteBridge) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs) > 0
}

// Symbols returns the subscribed symbols, sorted.
func (b *QuoteBridge) Symbols() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	symbols := make([]string, 0, len(b.subs))
	for s := range b.subs {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

func (b *QuoteBridge) stopLocked() {
	for symbol, id := range b.subs {
		b.subscriber.Unsubscribe(id)
		delete(b.subs, symbol)
	}
}

func (b *QuoteBridge) forward(symbol string) marketdata.QuoteCallback {
	return func(q marketdata.TokenQuote) error {
		if q.Price <= 0 {
			b.log.Warnf("ignore non-positive price for %s: %g", symbol, q.Price)
			return nil
		}
		b.updater.UpdateMarkPrice(symbol, q.Price)
		return nil
	}
}
