package marketdata

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tommytrillva/memecoinbot/internal/obs"
	"github.com/tommytrillva/memecoinbot/pkg/exception"
	"github.com/tommytrillva/memecoinbot/pkg/logger"
)

const (
	headerAPIKey = "X-Api-Key"
	headerAccept = "Accept"
	mimeJSON     = "application/json"

	opMetadata = "metadata"
	opQuote    = "quote"
	opCandles  = "candles"
)

// Config locates the provider endpoints.
type Config struct {
	BaseURL          string
	APIKey           string
	MetadataEndpoint string
	QuoteEndpoint    string
	CandlesEndpoint  string
	Retry            RetryPolicy
}

// Options carries the collaborators of a Client.
type Options struct {
	// Fetcher defaults to an HTTPFetcher.
	Fetcher Fetcher
	Logger  logger.Logger
	Metrics *obs.Metrics
}

// Client fetches token data from the provider and runs quote polling subscriptions.
type Client struct {
	baseURL   string
	apiKey    string
	endpoints map[string]string
	fetcher   Fetcher
	log       logger.Logger
	metrics   *obs.Metrics

	mu      sync.RWMutex
	headers http.Header
	retry   RetryPolicy

	subMu   sync.Mutex
	subs    map[SubscriptionID]*subscription
	nextID  atomic.Uint64
	running atomic.Bool
	closed  atomic.Bool
}

func NewClient(cfg Config, opt Options) *Client {
	fetcher := opt.Fetcher
	if fetcher == nil {
		fetcher = NewHTTPFetcher(nil)
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		endpoints: map[string]string{
			opMetadata: normalizeEndpoint(cfg.MetadataEndpoint),
			opQuote:    normalizeEndpoint(cfg.QuoteEndpoint),
			opCandles:  normalizeEndpoint(cfg.CandlesEndpoint),
		},
		fetcher: fetcher,
		log:     logger.OrDiscard(opt.Logger),
		metrics: opt.Metrics,
		headers: http.Header{},
		retry:   cfg.Retry,
		subs:    map[SubscriptionID]*subscription{},
	}
	if c.apiKey != "" {
		c.headers.Set(headerAPIKey, c.apiKey)
	}
	c.running.Store(true)
	return c
}

func normalizeEndpoint(endpoint string) string {
	if endpoint == "" || strings.HasPrefix(endpoint, "/") {
		return endpoint
	}
	return "/" + endpoint
}

// SetDefaultHeaders replaces the headers sent with every request.
// The API key header is kept unless headers override it.
func (c *Client) SetDefaultHeaders(headers map[string]string) {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	if c.apiKey != "" && h.Get(headerAPIKey) == "" {
		h.Set(headerAPIKey, c.apiKey)
	}

	c.mu.Lock()
	c.headers = h
	c.mu.Unlock()
}

// DefaultHeaders returns a copy of the headers sent with every request.
func (c *Client) DefaultHeaders() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.headers))
	for k := range c.headers {
		out[k] = c.headers.Get(k)
	}
	return out
}

// SetRetryPolicy replaces the retry policy of later fetches.
func (c *Client) SetRetryPolicy(p RetryPolicy) {
	c.mu.Lock()
	c.retry = p
	c.mu.Unlock()
}

func (c *Client) RetryPolicy() RetryPolicy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retry
}

// FetchTokenMetadata fetches <metadata endpoint>/<mint>.
func (c *Client) FetchTokenMetadata(ctx context.Context, mint string, extra map[string]string) (TokenMetadata, error) {
	if mint == "" {
		return TokenMetadata{}, exception.ErrMarketDataEmptyMint
	}
	var md TokenMetadata
	err := c.fetch(ctx, opMetadata, c.buildURL(opMetadata, mint, nil), extra, func(v any) {
		md = parseTokenMetadata(v)
	})
	return md, err
}

// FetchTokenQuote fetches <quote endpoint>/<mint>.
func (c *Client) FetchTokenQuote(ctx context.Context, mint string, extra map[string]string) (TokenQuote, error) {
	if mint == "" {
		return TokenQuote{}, exception.ErrMarketDataEmptyMint
	}
	var q TokenQuote
	err := c.fetch(ctx, opQuote, c.buildURL(opQuote, mint, nil), extra, func(v any) {
		q = parseTokenQuote(v)
	})
	return q, err
}

// FetchHistoricalCandles fetches <candles endpoint>/<mint>?timeframe=&limit=.
// A non-positive limit fails without a request.
func (c *Client) FetchHistoricalCandles(ctx context.Context, mint, timeframe string, limit int, extra map[string]string) ([]HistoricalCandle, error) {
	if limit <= 0 {
		return nil, exception.ErrMarketDataInvalidLimit
	}
	if mint == "" {
		return nil, exception.ErrMarketDataEmptyMint
	}

	query := [][2]string{
		{"timeframe", timeframe},
		{"limit", strconv.Itoa(limit)},
	}
	var candles []HistoricalCandle
	err := c.fetch(ctx, opCandles, c.buildURL(opCandles, mint, query), extra, func(v any) {
		candles = parseHistoricalCandles(v, mint, timeframe)
	})
	return candles, err
}

func (c *Client) buildURL(op, mint string, query [][2]string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	if endpoint := c.endpoints[op]; endpoint != "" {
		b.WriteString(endpoint)
		b.WriteByte('/')
		b.WriteString(url.PathEscape(mint))
	}
	for i, kv := range query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv[1]))
	}
	return b.String()
}

func (c *Client) requestHeader(extra map[string]string) http.Header {
	c.mu.RLock()
	h := c.headers.Clone()
	c.mu.RUnlock()

	for k, v := range extra {
		h.Set(k, v)
	}
	if c.apiKey != "" && h.Get(headerAPIKey) == "" {
		h.Set(headerAPIKey, c.apiKey)
	}
	if h.Get(headerAccept) == "" {
		h.Set(headerAccept, mimeJSON)
	}
	return h
}

// fetch runs GET and decode under the retry policy and hands the decoded payload to apply.
func (c *Client) fetch(ctx context.Context, op, target string, extra map[string]string, apply func(any)) error {
	policy := c.RetryPolicy()
	header := c.requestHeader(extra)
	attempts := policy.attempts()

	for attempt := 1; ; attempt++ {
		start := time.Now()
		body, err := c.fetcher.Get(ctx, target, header)
		var v any
		if err == nil {
			v, err = decode(op, body)
		}
		c.metrics.ObserveFetchAttempt(op, time.Since(start))

		if err == nil {
			apply(v)
			return nil
		}
		c.metrics.IncFetchFailure(op)

		if attempt >= attempts || ctx.Err() != nil || !retryable(err) {
			return &FetchError{Op: op, Attempts: attempt, Err: err}
		}

		wait := policy.Next(attempt)
		c.log.Debugf("fetch %s attempt %d/%d failed, retry in %s, err: %+v", op, attempt, attempts, wait, err)
		if err := sleep(ctx, wait); err != nil {
			return &FetchError{Op: op, Attempts: attempt, Err: err}
		}
	}
}
