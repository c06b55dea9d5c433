package marketdata

import (
	"context"
	"time"

	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/pkg/exception"
)

// DefaultPollInterval is used when a subscription asks for a non-positive interval.
const DefaultPollInterval = 1500 * time.Millisecond

// SubscriptionID identifies a quote subscription.
type SubscriptionID uint64

// QuoteCallback receives every polled quote. A returned error or a panic is
// logged and flagged on the subscription; polling continues.
type QuoteCallback func(TokenQuote) error

type subscription struct {
	id       SubscriptionID
	mint     string
	callback QuoteCallback
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	// guarded by Client.subMu
	callbackErr bool
}

// SubscribeToQuotes polls the quote of mint every interval on a dedicated goroutine.
func (c *Client) SubscribeToQuotes(mint string, callback QuoteCallback, interval time.Duration) (SubscriptionID, error) {
	if callback == nil {
		return 0, exception.ErrMarketDataNilCallback
	}
	if mint == "" {
		return 0, exception.ErrMarketDataEmptyMint
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscription{
		id:       SubscriptionID(c.nextID.Add(1)),
		mint:     mint,
		callback: callback,
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	c.subMu.Lock()
	if !c.running.Load() {
		c.subMu.Unlock()
		cancel()
		return 0, exception.ErrMarketDataClientClosed
	}
	c.subs[sub.id] = sub
	c.subMu.Unlock()

	go c.poll(ctx, sub)
	c.log.Debugf("quote subscription %d started, mint: %s, interval: %s", sub.id, mint, interval)
	return sub.id, nil
}

// Unsubscribe stops a subscription and waits for its goroutine, so the callback
// is never invoked after it returns. It must not be called from the callback.
func (c *Client) Unsubscribe(id SubscriptionID) {
	c.subMu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.subMu.Unlock()

	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
}

// SubscriptionHadCallbackError reports whether the callback of an active
// subscription has failed at least once.
func (c *Client) SubscriptionHadCallbackError(id SubscriptionID) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	sub, ok := c.subs[id]
	return ok && sub.callbackErr
}

// ActiveSubscriptions returns the number of running subscriptions.
func (c *Client) ActiveSubscriptions() int {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return len(c.subs)
}

// StopAll stops every subscription. The client keeps accepting new ones afterwards.
func (c *Client) StopAll() {
	wasRunning := c.running.Swap(false)
	c.drain()
	if !wasRunning {
		return
	}
	// closed is only set under subMu, so a concurrent Close cannot be undone here.
	c.subMu.Lock()
	if !c.closed.Load() {
		c.running.Store(true)
	}
	c.subMu.Unlock()
}

// Close stops every subscription and rejects new ones. Safe to call repeatedly.
func (c *Client) Close() {
	c.subMu.Lock()
	c.closed.Store(true)
	c.running.Store(false)
	c.subMu.Unlock()
	c.drain()
}

func (c *Client) drain() {
	c.subMu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for id, sub := range c.subs {
		subs = append(subs, sub)
		delete(c.subs, id)
	}
	c.subMu.Unlock()

	for _, sub := range subs {
		sub.cancel()
	}
	for _, sub := range subs {
		<-sub.done
	}
}

func (c *Client) poll(ctx context.Context, sub *subscription) {
	defer close(sub.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		quote, err := c.FetchTokenQuote(ctx, sub.mint, nil)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warnf("quote polling %s, err: %+v", sub.mint, err)
		} else if err := c.deliver(sub, quote); err != nil {
			c.metrics.IncCallbackError()
			c.subMu.Lock()
			sub.callbackErr = true
			c.subMu.Unlock()
			c.log.Errorf("quote callback %s, err: %+v", sub.mint, err)
		}

		timer.Reset(sub.interval)
	}
}

func (c *Client) deliver(sub *subscription, quote TokenQuote) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("callback panicked: %v", r)
		}
	}()
	return sub.callback(quote)
}
