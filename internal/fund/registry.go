package fund

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
)

// AddAsset registers a new portfolio asset. Token addresses are unique for
// the life of the fund, so re-adding a removed asset's token fails.
func (f *Fund) AddAsset(caller common.Address, asset domain.Asset) error {
	if err := f.requireOperator(caller); err != nil {
		return err
	}
	if asset.Token == domain.BaseCurrency {
		return fmt.Errorf("fund: add asset: base currency is not a tradable asset: %w", domain.ErrInvalidAssetBounds)
	}
	if err := asset.ValidateBounds(); err != nil {
		return fmt.Errorf("fund: add asset %s: %w", asset.Token.Hex(), err)
	}
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	if f.state.findAsset(asset.Token) != nil {
		return fmt.Errorf("fund: add asset %s: %w", asset.Token.Hex(), domain.ErrAlreadyExists)
	}

	asset.Active = true
	asset.AddedAt = f.now()
	f.state.Assets = append(f.state.Assets, &asset)

	f.logger.Info("asset added",
		"token", asset.Token.Hex(), "target_bps", asset.TargetWeight,
		"min_bps", asset.MinWeight, "max_bps", asset.MaxWeight)
	return nil
}

// UpdateAssetWeight changes the weight bounds of an active asset.
func (f *Fund) UpdateAssetWeight(caller, token common.Address, target, min, max int64) error {
	if err := f.requireOperator(caller); err != nil {
		return err
	}
	probe := domain.Asset{Token: token, TargetWeight: target, MinWeight: min, MaxWeight: max}
	if err := probe.ValidateBounds(); err != nil {
		return fmt.Errorf("fund: update asset %s: %w", token.Hex(), err)
	}
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	a := f.state.findAsset(token)
	if a == nil {
		return fmt.Errorf("fund: update asset %s: %w", token.Hex(), domain.ErrAssetNotFound)
	}
	if !a.Active {
		return fmt.Errorf("fund: update asset %s: %w", token.Hex(), domain.ErrInactiveAsset)
	}

	a.TargetWeight = target
	a.MinWeight = min
	a.MaxWeight = max

	f.logger.Info("asset weight updated",
		"token", token.Hex(), "target_bps", target, "min_bps", min, "max_bps", max)
	return nil
}

// RemoveAsset retires an asset: its holding is released to the operator's
// custody and the record is deactivated. Records are never deleted, which
// keeps token identifiers stable across the fund's history. The released
// token amount is returned.
func (f *Fund) RemoveAsset(caller, token common.Address) (*big.Int, error) {
	if err := f.requireOperator(caller); err != nil {
		return nil, err
	}
	if err := f.lock(); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	a := f.state.findAsset(token)
	if a == nil {
		return nil, fmt.Errorf("fund: remove asset %s: %w", token.Hex(), domain.ErrAssetNotFound)
	}
	if !a.Active {
		return nil, fmt.Errorf("fund: remove asset %s: %w", token.Hex(), domain.ErrInactiveAsset)
	}

	released := new(big.Int).Set(f.state.holding(token))
	f.state.Holdings[token] = big.NewInt(0)
	a.Active = false

	f.logger.Info("asset removed",
		"token", token.Hex(), "released", released.String())
	return released, nil
}

// Assets returns the full asset registry in registration order, including
// deactivated records.
func (f *Fund) Assets() []domain.Asset {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]domain.Asset, 0, len(f.state.Assets))
	for _, a := range f.state.Assets {
		out = append(out, *a)
	}
	return out
}
