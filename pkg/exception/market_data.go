package exception

import "github.com/yanun0323/errors"

var (
	ErrMarketDataInvalidLimit    = errors.New("market data: limit must be greater than zero")
	ErrMarketDataNilCallback     = errors.New("market data: nil quote callback")
	ErrMarketDataClientClosed    = errors.New("market data: client is shutting down")
	ErrMarketDataEmptyMint       = errors.New("market data: empty mint")
	ErrMarketDataPayloadTooLarge = errors.New("market data: response body too large")
)
