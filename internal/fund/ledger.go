package fund

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

var bpsDenom = big.NewInt(domain.WeightDenominator)

// Deposit credits base currency to the fund and mints shares to the
// holder. The pre-deposit value determines the share count; the first
// depositor bootstraps at one share per unit. The deposited amount is then
// allocated across underweight assets when an exchange adapter is
// configured.
func (f *Fund) Deposit(ctx context.Context, holder common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, fmt.Errorf("fund: deposit amount must be positive: %w", domain.ErrBelowMinimum)
	}
	if err := f.lock(); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	if f.state.Paused {
		return nil, fmt.Errorf("fund: deposit: %w", domain.ErrPaused)
	}
	if amount.Cmp(f.cfg.MinDeposit) < 0 {
		return nil, fmt.Errorf("fund: deposit %s under minimum %s: %w",
			amount, f.cfg.MinDeposit, domain.ErrBelowMinimum)
	}

	// Value before the deposit is credited. Evaluating V first keeps a
	// depositor from changing their own entry price within the call.
	preValue, err := f.totalValue(ctx, f.state)
	if err != nil {
		return nil, fmt.Errorf("fund: deposit valuation: %w", err)
	}

	var shares *big.Int
	switch {
	case f.state.TotalShares.Sign() == 0:
		shares = new(big.Int).Set(amount)
	case preValue.Sign() == 0:
		return nil, fmt.Errorf("fund: deposit into zero-value fund with outstanding shares: %w", domain.ErrInvalidPrice)
	default:
		shares = fixedpoint.MulDiv(amount, f.state.TotalShares, preValue)
	}

	next := f.state.clone()
	next.credit(holder, shares)
	next.TotalShares.Add(next.TotalShares, shares)
	next.IdleBalance.Add(next.IdleBalance, amount)

	if err := f.allocateIdle(ctx, next); err != nil {
		return nil, fmt.Errorf("fund: deposit allocation: %w", err)
	}

	f.commit(next)
	f.logger.Info("deposit",
		"holder", holder.Hex(), "amount", amount.String(), "shares", shares.String())
	return new(big.Int).Set(shares), nil
}

// allocateIdle spends the idle balance on underweight assets in
// registration order until either every deficit or the idle balance is
// exhausted. Target values come from the new total with the deposit
// already credited: invested value is derived by subtracting the idle
// balance after crediting, then the idle balance is added back. The loop
// is order-dependent on purpose; earlier registrations are funded first.
func (f *Fund) allocateIdle(ctx context.Context, next *State) error {
	if f.exchange == nil {
		return nil
	}

	total, err := f.totalValue(ctx, next)
	if err != nil {
		return err
	}
	invested := new(big.Int).Sub(total, next.IdleBalance)
	targetBase := new(big.Int).Add(invested, next.IdleBalance)

	for _, a := range next.Assets {
		if !a.Active {
			continue
		}
		if next.IdleBalance.Sign() <= 0 {
			break
		}

		price, err := f.resolvePrice(ctx, a)
		if err != nil {
			return err
		}
		current := assetValue(next.holding(a.Token), price)
		target := fixedpoint.MulDiv(targetBase, big.NewInt(a.TargetWeight), bpsDenom)

		deficit := new(big.Int).Sub(target, current)
		if deficit.Sign() <= 0 {
			continue
		}

		spend := deficit
		if spend.Cmp(next.IdleBalance) > 0 {
			spend = new(big.Int).Set(next.IdleBalance)
		}

		out, err := f.swapBaseForToken(ctx, a.Token, spend, price)
		if err != nil {
			return err
		}

		next.IdleBalance.Sub(next.IdleBalance, spend)
		next.Holdings[a.Token] = new(big.Int).Add(next.holding(a.Token), out)
	}
	return nil
}

// Withdraw burns shares from the holder and pays out their proportional
// slice of the fund in base currency. Without an exchange adapter only the
// idle-balance slice is paid; asset holdings stay untouched.
func (f *Fund) Withdraw(ctx context.Context, holder common.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, fmt.Errorf("fund: withdraw shares must be positive: %w", domain.ErrInsufficientBalance)
	}
	if err := f.lock(); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	if f.state.Paused {
		return nil, fmt.Errorf("fund: withdraw: %w", domain.ErrPaused)
	}
	if f.state.balanceOf(holder).Cmp(shares) < 0 {
		return nil, fmt.Errorf("fund: withdraw %s shares from balance %s: %w",
			shares, f.state.balanceOf(holder), domain.ErrInsufficientBalance)
	}

	// Proportions are taken against the pre-burn supply.
	denom := new(big.Int).Set(f.state.TotalShares)

	next := f.state.clone()
	next.Ledger[holder].Sub(next.Ledger[holder], shares)
	next.TotalShares.Sub(next.TotalShares, shares)

	payout := fixedpoint.MulDiv(next.IdleBalance, shares, denom)
	next.IdleBalance.Sub(next.IdleBalance, payout)

	if f.exchange != nil {
		for _, a := range next.Assets {
			if !a.Active {
				continue
			}
			slice := fixedpoint.MulDiv(next.holding(a.Token), shares, denom)
			if slice.Sign() <= 0 {
				continue
			}

			price, err := f.resolvePrice(ctx, a)
			if err != nil {
				return nil, fmt.Errorf("fund: withdraw liquidation: %w", err)
			}
			out, err := f.swapTokenForBase(ctx, a.Token, slice, price)
			if err != nil {
				return nil, fmt.Errorf("fund: withdraw liquidation: %w", err)
			}

			next.Holdings[a.Token] = new(big.Int).Sub(next.holding(a.Token), slice)
			payout.Add(payout, out)
		}
	}

	f.commit(next)
	f.logger.Info("withdraw",
		"holder", holder.Hex(), "shares", shares.String(), "payout", payout.String())
	return payout, nil
}

// swapBaseForToken buys an asset with base currency, deriving the minimum
// acceptable output from the oracle price and the slippage ceiling.
func (f *Fund) swapBaseForToken(ctx context.Context, token common.Address, amountIn, price *big.Int) (*big.Int, error) {
	expected := fixedpoint.MulDiv(amountIn, fixedpoint.Precision, price)
	minOut := applySlippageFloor(expected, f.cfg.MaxSlippageBps)
	deadline := f.now().Add(f.cfg.SwapDeadline)

	out, err := f.exchange.Swap(ctx, domain.BaseCurrency, token, amountIn, minOut, deadline)
	if err != nil {
		return nil, fmt.Errorf("fund: swap base for %s: %w", token.Hex(), err)
	}
	return out, nil
}

// swapTokenForBase sells an asset for base currency.
func (f *Fund) swapTokenForBase(ctx context.Context, token common.Address, amountIn, price *big.Int) (*big.Int, error) {
	expected := fixedpoint.MulDiv(amountIn, price, fixedpoint.Precision)
	minOut := applySlippageFloor(expected, f.cfg.MaxSlippageBps)
	deadline := f.now().Add(f.cfg.SwapDeadline)

	out, err := f.exchange.Swap(ctx, token, domain.BaseCurrency, amountIn, minOut, deadline)
	if err != nil {
		return nil, fmt.Errorf("fund: swap %s for base: %w", token.Hex(), err)
	}
	return out, nil
}

// applySlippageFloor discounts an expected swap output by the configured
// maximum slippage.
func applySlippageFloor(expected *big.Int, maxSlippageBps int64) *big.Int {
	keep := big.NewInt(domain.WeightDenominator - maxSlippageBps)
	return fixedpoint.MulDiv(expected, keep, bpsDenom)
}
