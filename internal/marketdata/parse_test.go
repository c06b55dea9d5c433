package marketdata

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeString(t *testing.T, payload string) any {
	t.Helper()
	v, err := decode("test", []byte(payload))
	require.NoError(t, err)
	return v
}

func TestParseQuoteAliases(t *testing.T) {
	price := parseTokenQuote(decodeString(t, `{"price": 0.0042}`))
	priceUsd := parseTokenQuote(decodeString(t, `{"priceUsd": 0.0042}`))
	usdPrice := parseTokenQuote(decodeString(t, `{"usdPrice": "0.0042"}`))

	assert.Equal(t, 0.0042, price.Price)
	assert.Equal(t, price.Price, priceUsd.Price)
	assert.Equal(t, price.Price, usdPrice.Price)

	first := parseTokenQuote(decodeString(t, `{"price": 1, "priceUsd": 2}`))
	assert.Equal(t, 1.0, first.Price, "first alias wins")
}

func TestParseQuoteEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "flat", payload: `{"mint": "M", "price": 2.5, "volume_24h": 10, "priceChange": -1.5, "liquidityUsd": 7, "updatedAt": "2024-01-01T00:00:00Z"}`},
		{name: "result", payload: `{"result": {"mint": "M", "price": 2.5, "volume_24h": 10, "priceChange": -1.5, "liquidityUsd": 7, "updatedAt": "2024-01-01T00:00:00Z"}}`},
		{name: "result data", payload: `{"result": {"data": {"address": "M", "priceUsd": 2.5, "volume": 10, "price_change_24h": -1.5, "liquidity": 7, "timestamp": "2024-01-01T00:00:00Z"}}}`},
		{name: "result data array", payload: `{"result": {"data": [{"mint": "M", "usdPrice": "2.5", "volume": 10, "priceChange": -1.5, "liquidityUsd": 7, "updatedAt": "2024-01-01T00:00:00Z"}]}}`},
		{name: "array", payload: `{"data": [{"mint": "M", "price": 2.5, "volume24h": 10, "priceChange24h": -1.5, "liquidity": 7, "time": "2024-01-01T00:00:00Z"}, {"mint": "X", "price": 9}]}`},
	}
	want := TokenQuote{Mint: "M", Price: 2.5, PriceChange24h: -1.5, Volume24h: 10, Liquidity: 7, Timestamp: "2024-01-01T00:00:00Z"}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, want, parseTokenQuote(decodeString(t, tc.payload)))
		})
	}
}

func TestParseMetadataNested(t *testing.T) {
	payload := `{
		"result": {
			"data": {
				"metadata": {
					"address": "MINT",
					"name": "Bonk",
					"symbol": "BONK",
					"desc": "dog coin",
					"image_url": "https://img.example.com/bonk.png",
					"market_cap": "1234.5",
					"liquidityUsd": 99,
					"holders": 42,
					"last_updated": 1700000000
				}
			}
		}
	}`
	md := parseTokenMetadata(decodeString(t, payload))
	assert.Equal(t, TokenMetadata{
		Mint:        "MINT",
		Name:        "Bonk",
		Symbol:      "BONK",
		Description: "dog coin",
		ImageURL:    "https://img.example.com/bonk.png",
		MarketCap:   1234.5,
		Liquidity:   99,
		HolderCount: 42,
		LastUpdated: "1700000000",
	}, md)
}

func TestParseMissingFieldsDefault(t *testing.T) {
	assert.Equal(t, TokenQuote{}, parseTokenQuote(decodeString(t, ``)))
	assert.Equal(t, TokenQuote{}, parseTokenQuote(decodeString(t, `null`)))
	assert.Equal(t, TokenMetadata{}, parseTokenMetadata(decodeString(t, `{"data": "unexpected"}`)))
	assert.Equal(t, 0.0, parseTokenQuote(decodeString(t, `{"price": "not a number"}`)).Price)
	assert.Equal(t, TokenQuote{}, parseTokenQuote(decodeString(t, `{"data": []}`)))
	assert.Equal(t, 4.0, parseTokenQuote(decodeString(t, `{"data": "stale", "price": 4}`)).Price)
}

func TestParseCandles(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []HistoricalCandle
	}{
		{
			name:    "array",
			payload: `{"result": {"data": {"candles": [{"open_time": "t0", "closeTime": "t1", "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volumeUsd": 10, "quote_volume": 15}]}}}`,
			want: []HistoricalCandle{{
				Mint: "MINT", Timeframe: "1m", OpenTime: "t0", CloseTime: "t1",
				Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, QuoteVolume: 15,
			}},
		},
		{
			name:    "single object",
			payload: `{"data": {"startTime": "t0", "endTime": "t1", "close": 3, "volume": 1, "quoteVolume": 2}}`,
			want: []HistoricalCandle{{
				Mint: "MINT", Timeframe: "1m", OpenTime: "t0", CloseTime: "t1", Close: 3, Volume: 1, QuoteVolume: 2,
			}},
		},
		{name: "null", payload: `{"data": null}`, want: []HistoricalCandle{}},
		{name: "empty array", payload: `[]`, want: []HistoricalCandle{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, parseHistoricalCandles(decodeString(t, tc.payload), "MINT", "1m"))
		})
	}
}

func TestDecodeErrorCarriesSnippet(t *testing.T) {
	_, err := decode("token quote", []byte(`{"price": oops}`))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, `{"price": oops}`, decodeErr.Snippet)
	assert.Contains(t, err.Error(), "failed to parse token quote response")
	assert.Contains(t, err.Error(), "payload snippet")

	long := `{"data": "` + strings.Repeat("x", 400)
	_, err = decode("token quote", []byte(long))
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, long[:maxSnippet]+"...", decodeErr.Snippet)
}

func TestFetchMalformedQuoteSurfacesDecodeError(t *testing.T) {
	f := &cannedFetcher{responses: []cannedResponse{{body: `<html>bad gateway</html>`}}}
	c := newTestClient(t, testConfig(), f)

	_, err := c.FetchTokenQuote(context.Background(), "MINT", nil)
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "<html>bad gateway</html>", decodeErr.Snippet)
	assert.Equal(t, 3, f.Calls())
}
