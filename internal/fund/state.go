package fund

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
)

// State is the full accounting aggregate for one fund. Mutating operations
// work on a deep copy and swap it in only after every step has succeeded,
// so a failed oracle call or swap leaves no partial writes behind.
type State struct {
	// Assets in registration order. Deactivated assets stay in the slice.
	Assets []*domain.Asset

	// Ledger maps holder address to share balance.
	Ledger map[common.Address]*big.Int

	// TotalShares is the outstanding share supply.
	TotalShares *big.Int

	// IdleBalance is un-invested base currency held by the fund.
	IdleBalance *big.Int

	// Holdings maps asset token to the fund's token balance (1e18 units).
	Holdings map[common.Address]*big.Int

	// HighWatermark is the highest share price at which performance fees
	// have been assessed, 1e18 fixed-point.
	HighWatermark *big.Int

	LastFeeCollection time.Time
	Paused            bool
}

func newState(now time.Time) *State {
	return &State{
		Ledger:            make(map[common.Address]*big.Int),
		TotalShares:       big.NewInt(0),
		IdleBalance:       big.NewInt(0),
		Holdings:          make(map[common.Address]*big.Int),
		HighWatermark:     new(big.Int).Set(sharePriceUnit),
		LastFeeCollection: now,
	}
}

// clone deep-copies the state for the mutate-then-commit pattern.
func (s *State) clone() *State {
	out := &State{
		Assets:            make([]*domain.Asset, len(s.Assets)),
		Ledger:            make(map[common.Address]*big.Int, len(s.Ledger)),
		TotalShares:       new(big.Int).Set(s.TotalShares),
		IdleBalance:       new(big.Int).Set(s.IdleBalance),
		Holdings:          make(map[common.Address]*big.Int, len(s.Holdings)),
		HighWatermark:     new(big.Int).Set(s.HighWatermark),
		LastFeeCollection: s.LastFeeCollection,
		Paused:            s.Paused,
	}
	for i, a := range s.Assets {
		cp := *a
		out.Assets[i] = &cp
	}
	for addr, bal := range s.Ledger {
		out.Ledger[addr] = new(big.Int).Set(bal)
	}
	for token, bal := range s.Holdings {
		out.Holdings[token] = new(big.Int).Set(bal)
	}
	return out
}

// findAsset returns the asset registered for token, or nil.
func (s *State) findAsset(token common.Address) *domain.Asset {
	for _, a := range s.Assets {
		if a.Token == token {
			return a
		}
	}
	return nil
}

// holding returns the token balance for an asset, never nil.
func (s *State) holding(token common.Address) *big.Int {
	if bal, ok := s.Holdings[token]; ok {
		return bal
	}
	return big.NewInt(0)
}

// credit adds shares to a holder's balance.
func (s *State) credit(holder common.Address, shares *big.Int) {
	bal, ok := s.Ledger[holder]
	if !ok {
		bal = big.NewInt(0)
		s.Ledger[holder] = bal
	}
	bal.Add(bal, shares)
}

// balanceOf returns a holder's share balance, never nil.
func (s *State) balanceOf(holder common.Address) *big.Int {
	if bal, ok := s.Ledger[holder]; ok {
		return bal
	}
	return big.NewInt(0)
}
