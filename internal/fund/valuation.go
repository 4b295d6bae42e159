package fund

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

// resolvePrice fetches the latest quote for an asset and rescales it to
// 1e18. Zero or negative prices are rejected; no caching happens here.
func (f *Fund) resolvePrice(ctx context.Context, a *domain.Asset) (*big.Int, error) {
	raw, decimals, err := f.oracle.LatestPrice(ctx, a.PriceFeed)
	if err != nil {
		return nil, fmt.Errorf("fund: price for %s: %w", a.Token.Hex(), err)
	}
	if raw == nil || raw.Sign() <= 0 {
		return nil, fmt.Errorf("fund: price for %s: %w", a.Token.Hex(), domain.ErrInvalidPrice)
	}
	return fixedpoint.New(raw, decimals).Rescale(fixedpoint.Decimals).Mantissa(), nil
}

// assetValue is holding * price / 1e18 in base-currency units.
func assetValue(holding, price *big.Int) *big.Int {
	return fixedpoint.MulDiv(holding, price, fixedpoint.Precision)
}

// totalValue sums the idle balance and the marked value of every active
// asset's holding. Caller holds at least the read lock.
func (f *Fund) totalValue(ctx context.Context, s *State) (*big.Int, error) {
	total := new(big.Int).Set(s.IdleBalance)
	for _, a := range s.Assets {
		if !a.Active {
			continue
		}
		holding := s.holding(a.Token)
		if holding.Sign() == 0 {
			continue
		}
		price, err := f.resolvePrice(ctx, a)
		if err != nil {
			return nil, err
		}
		total.Add(total, assetValue(holding, price))
	}
	return total, nil
}

// sharePrice is totalValue * 1e18 / totalShares, or 1e18 when no shares
// are outstanding.
func sharePrice(total, shares *big.Int) *big.Int {
	if shares.Sign() == 0 {
		return new(big.Int).Set(sharePriceUnit)
	}
	return fixedpoint.MulDiv(total, sharePriceUnit, shares)
}

// weights computes per-asset portfolio weights in basis points against the
// given total value. Caller holds at least the read lock.
func (f *Fund) weights(ctx context.Context, s *State, total *big.Int) ([]domain.AssetWeight, error) {
	out := make([]domain.AssetWeight, 0, len(s.Assets))
	for _, a := range s.Assets {
		if !a.Active {
			continue
		}
		holding := s.holding(a.Token)
		value := big.NewInt(0)
		if holding.Sign() > 0 {
			price, err := f.resolvePrice(ctx, a)
			if err != nil {
				return nil, err
			}
			value = assetValue(holding, price)
		}
		w := int64(0)
		if total.Sign() > 0 {
			w = fixedpoint.MulDiv(value, big.NewInt(domain.WeightDenominator), total).Int64()
		}
		out = append(out, domain.AssetWeight{Token: a.Token, WeightBps: w, Value: value})
	}
	return out, nil
}

// TotalValue returns the fund's current total value in base-currency
// units.
func (f *Fund) TotalValue(ctx context.Context) (*big.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.totalValue(ctx, f.state)
}

// SharePrice returns the current share price, 1e18 fixed-point. An empty
// fund reports exactly one unit.
func (f *Fund) SharePrice(ctx context.Context) (*big.Int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total, err := f.totalValue(ctx, f.state)
	if err != nil {
		return nil, err
	}
	return sharePrice(total, f.state.TotalShares), nil
}

// CurrentWeights returns the live portfolio weight of every active asset
// in registration order.
func (f *Fund) CurrentWeights(ctx context.Context) ([]domain.AssetWeight, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	total, err := f.totalValue(ctx, f.state)
	if err != nil {
		return nil, err
	}
	return f.weights(ctx, f.state, total)
}

// AssetHolding returns the fund's token balance for an asset.
func (f *Fund) AssetHolding(token common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return new(big.Int).Set(f.state.holding(token))
}
