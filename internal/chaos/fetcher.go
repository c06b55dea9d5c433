package chaos

import (
	"context"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/internal/marketdata"
	"github.com/tommytrillva/memecoinbot/pkg/exception"
)

// ErrInjected is returned for requests dropped by the fetcher.
var ErrInjected = errors.New("chaos: injected transport failure")

// Config controls fault injection.
type Config struct {
	Seed        int64
	FailRate    float64
	CorruptRate float64
	MaxDelay    time.Duration
}

// Enabled reports whether any fault is configured.
func (c Config) Enabled() bool {
	return c.FailRate > 0 || c.CorruptRate > 0 || c.MaxDelay > 0
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.FailRate < 0 || c.FailRate > 1 {
		return errors.Wrap(exception.ErrInvalidConfig, "failRate must be between 0 and 1")
	}
	if c.CorruptRate < 0 || c.CorruptRate > 1 {
		return errors.Wrap(exception.ErrInvalidConfig, "corruptRate must be between 0 and 1")
	}
	if c.MaxDelay < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "maxDelay must be >= 0")
	}
	return nil
}

// Fetcher wraps a marketdata.Fetcher and injects failures, truncated payloads
// and latency.
type Fetcher struct {
	next marketdata.Fetcher
	cfg  Config

	mu  sync.Mutex
	rng *rand.Rand
}

// NewFetcher creates a fault-injecting fetcher with validation.
func NewFetcher(next marketdata.Fetcher, cfg Config) (*Fetcher, error) {
	if next == nil {
		return nil, exception.ErrNilInstance
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Fetcher{
		next: next,
		cfg:  cfg,
		rng:  rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func (f *Fetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	delay, fail, corrupt := f.roll()

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if fail {
		return nil, ErrInjected
	}

	body, err := f.next.Get(ctx, url, header)
	if err != nil || !corrupt || len(body) == 0 {
		return body, err
	}
	return body[:len(body)/2], nil
}

func (f *Fetcher) roll() (time.Duration, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var delay time.Duration
	if f.cfg.MaxDelay > 0 {
		delay = time.Duration(f.rng.Int63n(f.cfg.MaxDelay.Nanoseconds() + 1))
	}
	fail := f.cfg.FailRate > 0 && f.rng.Float64() < f.cfg.FailRate
	corrupt := f.cfg.CorruptRate > 0 && f.rng.Float64() < f.cfg.CorruptRate
	return delay, fail, corrupt
}
