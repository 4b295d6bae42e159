package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ExchangeAdapter executes swaps between the base currency and portfolio
// assets. Implementations must not call back into the engine; the engine
// holds its state lock across the call and a reentrant invocation fails
// with ErrReentrantCall.
//
// A nil adapter is valid: deposits then skip allocation, withdrawals pay
// from the idle balance only, and rebalance executes no trades.
type ExchangeAdapter interface {
	Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int, deadline time.Time) (amountOut *big.Int, err error)
}
