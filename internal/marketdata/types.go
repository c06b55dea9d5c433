package marketdata

// TokenMetadata describes a token as reported by the provider.
type TokenMetadata struct {
	Mint        string  `json:"mint"`
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	MarketCap   float64 `json:"marketCap"`
	Liquidity   float64 `json:"liquidity"`
	HolderCount uint64  `json:"holderCount"`
	LastUpdated string  `json:"lastUpdated"`
}

// TokenQuote is the latest price snapshot of a token.
type TokenQuote struct {
	Mint           string  `json:"mint"`
	Price          float64 `json:"price"`
	PriceChange24h float64 `json:"priceChange24h"`
	Volume24h      float64 `json:"volume24h"`
	Liquidity      float64 `json:"liquidity"`
	Timestamp      string  `json:"timestamp"`
}

// HistoricalCandle is one OHLCV bar. Mint and Timeframe echo the request.
type HistoricalCandle struct {
	Mint        string  `json:"mint"`
	Timeframe   string  `json:"timeframe"`
	OpenTime    string  `json:"openTime"`
	CloseTime   string  `json:"closeTime"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quoteVolume"`
}
