package marketdata

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// DecodeError reports a payload that is not valid JSON.
type DecodeError struct {
	Context string
	Snippet string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v (payload snippet: %s)", e.Context, e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// decode parses body into generic JSON values. An empty body is an empty object.
func decode(context string, body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := sonic.ConfigStd.Unmarshal(body, &v); err != nil {
		return nil, &DecodeError{Context: context, Snippet: snippet(body), Err: err}
	}
	return v, nil
}

// unwrap descends into key when v is an object holding it.
func unwrap(v any, key string) any {
	if m, ok := v.(map[string]any); ok {
		if inner, ok := m[key]; ok {
			return inner
		}
	}
	return v
}

// unwrapObject descends into key only when the value under it is an object.
func unwrapObject(v any, key string) any {
	if inner, ok := unwrap(v, key).(map[string]any); ok {
		return inner
	}
	return v
}

// lookup returns the value of the first alias present in m.
func lookup(m map[string]any, aliases ...string) (any, bool) {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func stringField(m map[string]any, aliases ...string) string {
	v, ok := lookup(m, aliases...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func floatField(m map[string]any, aliases ...string) float64 {
	v, ok := lookup(m, aliases...)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return 0
		}
		return d.InexactFloat64()
	default:
		return 0
	}
}

func uintField(m map[string]any, aliases ...string) uint64 {
	f := floatField(m, aliases...)
	if f <= 0 {
		return 0
	}
	return uint64(f)
}

func parseTokenMetadata(v any) TokenMetadata {
	v = unwrap(v, "result")
	v = unwrapObject(v, "data")
	v = unwrap(v, "metadata")

	m, _ := v.(map[string]any)
	return TokenMetadata{
		Mint:        stringField(m, "mint", "address"),
		Name:        stringField(m, "name"),
		Symbol:      stringField(m, "symbol"),
		Description: stringField(m, "description", "desc"),
		ImageURL:    stringField(m, "image", "imageUrl", "image_url"),
		MarketCap:   floatField(m, "marketCap", "market_cap"),
		Liquidity:   floatField(m, "liquidity", "liquidityUsd"),
		HolderCount: uintField(m, "holderCount", "holder_count", "holders"),
		LastUpdated: stringField(m, "updatedAt", "updated_at", "last_updated"),
	}
}

func parseTokenQuote(v any) TokenQuote {
	v = unwrap(v, "result")
	switch inner := unwrap(v, "data").(type) {
	case map[string]any, []any:
		v = inner
	}
	if arr, ok := v.([]any); ok && len(arr) > 0 {
		v = arr[0]
	}

	m, _ := v.(map[string]any)
	return TokenQuote{
		Mint:           stringField(m, "mint", "address"),
		Price:          floatField(m, "price", "priceUsd", "usdPrice"),
		PriceChange24h: floatField(m, "priceChange24h", "price_change_24h", "priceChange"),
		Volume24h:      floatField(m, "volume24h", "volume_24h", "volume"),
		Liquidity:      floatField(m, "liquidity", "liquidityUsd"),
		Timestamp:      stringField(m, "timestamp", "updatedAt", "time"),
	}
}

func parseHistoricalCandles(v any, mint, timeframe string) []HistoricalCandle {
	v = unwrap(v, "result")
	v = unwrap(v, "data")
	v = unwrap(v, "candles")

	switch t := v.(type) {
	case nil:
		return []HistoricalCandle{}
	case []any:
		candles := make([]HistoricalCandle, 0, len(t))
		for _, entry := range t {
			candles = append(candles, parseHistoricalCandle(entry, mint, timeframe))
		}
		return candles
	default:
		return []HistoricalCandle{parseHistoricalCandle(t, mint, timeframe)}
	}
}

func parseHistoricalCandle(v any, mint, timeframe string) HistoricalCandle {
	m, _ := v.(map[string]any)
	return HistoricalCandle{
		Mint:        mint,
		Timeframe:   timeframe,
		OpenTime:    stringField(m, "open_time", "startTime", "time"),
		CloseTime:   stringField(m, "close_time", "closeTime", "endTime"),
		Open:        floatField(m, "open"),
		High:        floatField(m, "high"),
		Low:         floatField(m, "low"),
		Close:       floatField(m, "close"),
		Volume:      floatField(m, "volume", "volumeUsd"),
		QuoteVolume: floatField(m, "quote_volume", "quoteVolume"),
	}
}
