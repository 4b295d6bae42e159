package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Oracle resolves the latest price for a price feed. Prices are quoted in
// the base currency with the returned decimal precision; the resolver layer
// rescales them to 1e18 before any valuation math.
type Oracle interface {
	LatestPrice(ctx context.Context, feed common.Address) (price *big.Int, decimals uint8, err error)
}

// Quote is a cached oracle price with its publication time.
type Quote struct {
	Price    *big.Int
	Decimals uint8
	At       time.Time
}
