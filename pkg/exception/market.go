package exception

import "errors"

// Market errors
var (
	ErrMarketUnknownInstrument = errors.New("market: unknown instrument")
	ErrMarketInvalidShares     = errors.New("market: invalid shares")
	ErrMarketInvalidPrice      = errors.New("market: invalid price")
	ErrMarketInvalidOrderType  = errors.New("market: invalid order type")
	ErrMarketInvalidPosition   = errors.New("market: invalid position")
	ErrMarketOrderRejected     = errors.New("market: order rejected by risk")
	ErrMarketDecodeSnapshot    = errors.New("market: decode snapshot")
	ErrMarketDuplicateSymbol   = errors.New("market: duplicate symbol")
)
