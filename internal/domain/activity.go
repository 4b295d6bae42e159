package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ActivityKind classifies a ledger activity record.
type ActivityKind string

const (
	ActivityDeposit     ActivityKind = "deposit"
	ActivityWithdraw    ActivityKind = "withdraw"
	ActivityFee         ActivityKind = "fee"
	ActivityRebalance   ActivityKind = "rebalance"
	ActivityAssetChange ActivityKind = "asset_change"
	ActivityPause       ActivityKind = "pause"
)

// ActivityRecord is an append-only history row for a fund operation.
// Amount and Shares are nil for kinds where they do not apply.
type ActivityRecord struct {
	ID               string
	Kind             ActivityKind
	Holder           common.Address
	Amount           *big.Int
	Shares           *big.Int
	SharePriceBefore *big.Int
	SharePriceAfter  *big.Int
	Detail           map[string]any
	CreatedAt        time.Time
}
