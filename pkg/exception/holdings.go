package exception

import "errors"

// Holdings errors
var (
	ErrHoldingsInsufficientCash   = errors.New("holdings: insufficient cash")
	ErrHoldingsInsufficientShares = errors.New("holdings: insufficient shares")
	ErrHoldingsMaxSharesExceeded  = errors.New("holdings: max shares exceeded")
	ErrHoldingsInvalidTrade       = errors.New("holdings: invalid trade")
)
