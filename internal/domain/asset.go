package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WeightDenominator is the basis-point denominator used for all weights,
// rates, and thresholds.
const WeightDenominator = 10000

// BaseCurrency is the sentinel token address representing the base
// currency in swap legs.
var BaseCurrency = common.Address{}

// Asset is a registered portfolio asset. Token is the ERC-20 contract
// address; PriceFeed identifies the oracle feed quoting the asset in the
// base currency. Weights are basis points of total portfolio value.
type Asset struct {
	Token        common.Address
	PriceFeed    common.Address
	TargetWeight int64 // bps
	MinWeight    int64 // bps
	MaxWeight    int64 // bps
	Active       bool
	AddedAt      time.Time
}

// ValidateBounds checks the weight invariant min <= target <= max with
// target in (0, 10000].
func (a Asset) ValidateBounds() error {
	if a.TargetWeight <= 0 || a.TargetWeight > WeightDenominator {
		return ErrInvalidAssetBounds
	}
	if a.MinWeight < 0 || a.MaxWeight > WeightDenominator {
		return ErrInvalidAssetBounds
	}
	if a.MinWeight > a.TargetWeight || a.TargetWeight > a.MaxWeight {
		return ErrInvalidAssetBounds
	}
	return nil
}

// TradeSide indicates the direction of a rebalance trade relative to the
// asset being adjusted.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// TradeSuggestion is a single rebalance instruction produced by the
// planner. TokenAmount is in the asset's native 1e18 units, ValueDelta in
// base-currency units.
type TradeSuggestion struct {
	Token          common.Address
	Side           TradeSide
	TokenAmount    *big.Int
	ValueDelta     *big.Int
	DeltaWeightBps int64
}

// AssetWeight pairs an asset with its current portfolio weight.
type AssetWeight struct {
	Token     common.Address
	WeightBps int64
	Value     *big.Int
}
