package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yanun0323/errors"

	"github.com/tommytrillva/memecoinbot/pkg/exception"
)

// DefaultHTTPTimeout bounds a single GET issued by HTTPFetcher.
const DefaultHTTPTimeout = 10 * time.Second

// DefaultMaxBodySize caps how much of a response body HTTPFetcher reads.
const DefaultMaxBodySize = 8 << 20

const maxSnippet = 256

// Fetcher performs a GET and returns the raw response body.
type Fetcher interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string, header http.Header) ([]byte, error)

func (f FetcherFunc) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	return f(ctx, url, header)
}

// StatusError is returned for HTTP responses with status >= 400.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.Code, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// HTTPFetcher is the production Fetcher.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPFetcher wraps client. A nil client gets DefaultHTTPTimeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &HTTPFetcher{client: client, maxBody: DefaultMaxBodySize}
}

func (f *HTTPFetcher) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request").With("url", url)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request").With("url", url)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body").With("url", url)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet(body)}
	}
	if int64(len(body)) > f.maxBody {
		return nil, errors.Wrapf(exception.ErrMarketDataPayloadTooLarge, "limit %d bytes", f.maxBody).With("url", url)
	}
	return body, nil
}

func snippet(body []byte) string {
	if len(body) > maxSnippet {
		return string(body[:maxSnippet]) + "..."
	}
	return string(body)
}
