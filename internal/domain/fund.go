package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// FundRecord is the registry row describing a fund deployment. The live
// share ledger is held by the engine; the record carries the immutable
// parameters a fund was created with.
type FundRecord struct {
	ID                string
	Name              string
	Symbol            string
	Creator           common.Address
	Operator          common.Address
	FeeRecipient      common.Address
	ManagementFeeBps  int64
	PerformanceFeeBps int64
	CreatedAt         time.Time
}

// FundSnapshot is a point-in-time view of the engine state for the API.
type FundSnapshot struct {
	TotalValue        *big.Int
	TotalShares       *big.Int
	SharePrice        *big.Int // 1e18 fixed-point
	IdleBalance       *big.Int
	HighWatermark     *big.Int
	LastFeeCollection time.Time
	Paused            bool
	Assets            []Asset
	Weights           []AssetWeight
}

// FeeBreakdown reports the share mint from a fee collection cycle.
type FeeBreakdown struct {
	ManagementFee  *big.Int // base-currency value
	PerformanceFee *big.Int
	SharesMinted   *big.Int
	Elapsed        time.Duration
}
