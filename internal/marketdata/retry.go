package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tommytrillva/memecoinbot/pkg/exception"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
)

// RetryPolicy bounds the attempts of one fetch operation.
type RetryPolicy struct {
	// MaxAttempts counts the first try. Values below 1 mean a single attempt.
	MaxAttempts int
	// InitialBackoff is the wait after the first failure; it doubles per attempt. Zero disables waiting.
	InitialBackoff time.Duration
	// MaxBackoff caps the wait. Zero means DefaultMaxBackoff.
	MaxBackoff time.Duration
}

// DefaultRetryPolicy returns 3 attempts starting at 200ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Next returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Next(attempt int) time.Duration {
	if p.InitialBackoff <= 0 {
		return 0
	}
	if attempt <= 0 {
		attempt = 1
	}
	max := p.MaxBackoff
	if max <= 0 {
		max = DefaultMaxBackoff
	}

	wait := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= max {
			return max
		}
	}
	if wait > max {
		return max
	}
	return wait
}

// FetchError is returned once a fetch operation gives up.
type FetchError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("market data: %s failed after %d attempt(s): %v", e.Op, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// retryable reports whether err may clear on a later attempt.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, exception.ErrMarketDataPayloadTooLarge) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
