// Package exchange provides swap adapters implementing
// domain.ExchangeAdapter.
package exchange

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

// Simulated fills swaps at the oracle price with a fixed slippage haircut.
// It keeps no inventory and is meant for paper trading and integration
// tests; a venue-backed adapter replaces it in live deployments.
type Simulated struct {
	oracle      domain.Oracle
	feeds       map[common.Address]common.Address // token -> price feed
	slippageBps int64
}

// NewSimulated creates a simulated exchange. feeds maps asset tokens to
// the oracle feed quoting them in base currency; slippageBps is deducted
// from every fill.
func NewSimulated(oracle domain.Oracle, feeds map[common.Address]common.Address, slippageBps int64) *Simulated {
	cp := make(map[common.Address]common.Address, len(feeds))
	for token, feed := range feeds {
		cp[token] = feed
	}
	return &Simulated{oracle: oracle, feeds: cp, slippageBps: slippageBps}
}

// Swap fills at oracle price less the slippage haircut. Exactly one leg
// must be the base currency. Expired deadlines and fills under
// minAmountOut are rejected.
func (s *Simulated) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int, deadline time.Time) (*big.Int, error) {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return nil, fmt.Errorf("exchange: swap deadline passed")
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, fmt.Errorf("exchange: swap amount must be positive")
	}

	var out *big.Int
	switch {
	case tokenIn == domain.BaseCurrency:
		price, err := s.tokenPrice(ctx, tokenOut)
		if err != nil {
			return nil, err
		}
		out = fixedpoint.MulDiv(amountIn, fixedpoint.Precision, price)
	case tokenOut == domain.BaseCurrency:
		price, err := s.tokenPrice(ctx, tokenIn)
		if err != nil {
			return nil, err
		}
		out = fixedpoint.MulDiv(amountIn, price, fixedpoint.Precision)
	default:
		return nil, fmt.Errorf("exchange: one swap leg must be the base currency")
	}

	keep := big.NewInt(domain.WeightDenominator - s.slippageBps)
	out = fixedpoint.MulDiv(out, keep, big.NewInt(domain.WeightDenominator))

	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("exchange: fill %s below minimum %s", out, minAmountOut)
	}
	return out, nil
}

// tokenPrice resolves a token's base-currency price at 1e18.
func (s *Simulated) tokenPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	feed, ok := s.feeds[token]
	if !ok {
		return nil, fmt.Errorf("exchange: no price feed for token %s: %w", token.Hex(), domain.ErrInvalidPrice)
	}
	raw, decimals, err := s.oracle.LatestPrice(ctx, feed)
	if err != nil {
		return nil, fmt.Errorf("exchange: price for %s: %w", token.Hex(), err)
	}
	if raw.Sign() <= 0 {
		return nil, fmt.Errorf("exchange: price for %s: %w", token.Hex(), domain.ErrInvalidPrice)
	}
	return fixedpoint.New(raw, decimals).Rescale(fixedpoint.Decimals).Mantissa(), nil
}

var _ domain.ExchangeAdapter = (*Simulated)(nil)
