package chaos

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommytrillva/memecoinbot/internal/marketdata"
)

func staticFetcher(calls *atomic.Int64) marketdata.Fetcher {
	return marketdata.FetcherFunc(func(context.Context, string, http.Header) ([]byte, error) {
		calls.Add(1)
		return []byte(`{"price": 1.5}`), nil
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{FailRate: 1.5}.Validate())
	assert.Error(t, Config{CorruptRate: -0.1}.Validate())
	assert.Error(t, Config{MaxDelay: -time.Second}.Validate())

	assert.False(t, Config{Seed: 7}.Enabled())
	assert.True(t, Config{FailRate: 0.1}.Enabled())
}

func TestNewFetcherRejectsNil(t *testing.T) {
	_, err := NewFetcher(nil, Config{})
	assert.Error(t, err)
}

func TestFetcherPassThrough(t *testing.T) {
	var calls atomic.Int64
	f, err := NewFetcher(staticFetcher(&calls), Config{Seed: 1})
	require.NoError(t, err)

	body, err := f.Get(context.Background(), "u", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"price": 1.5}`, string(body))
	assert.Equal(t, int64(1), calls.Load())
}

func TestFetcherAlwaysFails(t *testing.T) {
	var calls atomic.Int64
	f, err := NewFetcher(staticFetcher(&calls), Config{Seed: 1, FailRate: 1})
	require.NoError(t, err)

	_, err = f.Get(context.Background(), "u", nil)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Zero(t, calls.Load())
}

func TestFetcherCorruptsPayload(t *testing.T) {
	var calls atomic.Int64
	f, err := NewFetcher(staticFetcher(&calls), Config{Seed: 1, CorruptRate: 1})
	require.NoError(t, err)

	body, err := f.Get(context.Background(), "u", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"price`, string(body))
}

func TestFetcherDelayObservesContext(t *testing.T) {
	var calls atomic.Int64
	f, err := NewFetcher(staticFetcher(&calls), Config{Seed: 3, MaxDelay: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Get(ctx, "u", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientRetriesThroughChaos(t *testing.T) {
	var calls atomic.Int64
	f, err := NewFetcher(staticFetcher(&calls), Config{Seed: 42, FailRate: 0.5, CorruptRate: 0.3})
	require.NoError(t, err)

	client := marketdata.NewClient(marketdata.Config{
		BaseURL:       "https://api.example.com",
		QuoteEndpoint: "quotes",
		Retry:         marketdata.RetryPolicy{MaxAttempts: 50},
	}, marketdata.Options{Fetcher: f})
	defer client.Close()

	for range 10 {
		q, err := client.FetchTokenQuote(context.Background(), "MINT", nil)
		require.NoError(t, err)
		assert.Equal(t, 1.5, q.Price)
	}
}
