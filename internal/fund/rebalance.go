package fund

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

// planRebalance sizes one trade per active asset whose weight has drifted
// past the threshold. Output order matches asset registration order;
// assets within the threshold are omitted. Caller holds at least the read
// lock.
func (f *Fund) planRebalance(ctx context.Context, s *State) ([]domain.TradeSuggestion, error) {
	total, err := f.totalValue(ctx, s)
	if err != nil {
		return nil, err
	}
	if total.Sign() == 0 {
		return nil, nil
	}

	var out []domain.TradeSuggestion
	for _, a := range s.Assets {
		if !a.Active {
			continue
		}

		price, err := f.resolvePrice(ctx, a)
		if err != nil {
			return nil, err
		}
		value := assetValue(s.holding(a.Token), price)
		weight := fixedpoint.MulDiv(value, bpsDenom, total).Int64()

		drift := weight - a.TargetWeight
		if drift < 0 {
			drift = -drift
		}
		if drift <= f.cfg.RebalanceThresholdBps {
			continue
		}

		target := fixedpoint.MulDiv(total, big.NewInt(a.TargetWeight), bpsDenom)
		delta := new(big.Int).Sub(value, target)

		side := domain.TradeSideSell
		if delta.Sign() < 0 {
			side = domain.TradeSideBuy
			delta.Neg(delta)
		}

		out = append(out, domain.TradeSuggestion{
			Token:          a.Token,
			Side:           side,
			TokenAmount:    fixedpoint.MulDiv(delta, fixedpoint.Precision, price),
			ValueDelta:     delta,
			DeltaWeightBps: drift,
		})
	}
	return out, nil
}

// PreviewRebalance returns the trades a rebalance would attempt, without
// executing anything. Available while paused.
func (f *Fund) PreviewRebalance(ctx context.Context) ([]domain.TradeSuggestion, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	plan, err := f.planRebalance(ctx, f.state)
	if err != nil {
		return nil, fmt.Errorf("fund: preview rebalance: %w", err)
	}
	return plan, nil
}

// Rebalance executes the drift plan: sells run first so their proceeds can
// fund buys, and each buy is capped by the idle balance live at execution
// time. Any buy deficit is left for a later round rather than borrowed.
// Post-trade weights are recomputed from actual balances since fills may
// differ from the oracle estimate.
func (f *Fund) Rebalance(ctx context.Context, caller common.Address) ([]domain.TradeSuggestion, error) {
	if err := f.requireOperator(caller); err != nil {
		return nil, err
	}
	if err := f.lock(); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	plan, err := f.planRebalance(ctx, f.state)
	if err != nil {
		return nil, fmt.Errorf("fund: rebalance plan: %w", err)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("fund: rebalance: %w", domain.ErrRebalanceNotNeeded)
	}
	if f.exchange == nil {
		f.logger.Warn("rebalance skipped, no exchange adapter configured", "drifted", len(plan))
		return nil, nil
	}

	next := f.state.clone()
	var executed []domain.TradeSuggestion

	for _, t := range plan {
		if t.Side != domain.TradeSideSell {
			continue
		}
		a := next.findAsset(t.Token)
		price, err := f.resolvePrice(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("fund: rebalance sell: %w", err)
		}
		out, err := f.swapTokenForBase(ctx, t.Token, t.TokenAmount, price)
		if err != nil {
			return nil, fmt.Errorf("fund: rebalance sell: %w", err)
		}
		next.Holdings[t.Token] = new(big.Int).Sub(next.holding(t.Token), t.TokenAmount)
		next.IdleBalance.Add(next.IdleBalance, out)
		executed = append(executed, t)
	}

	for _, t := range plan {
		if t.Side != domain.TradeSideBuy {
			continue
		}
		if next.IdleBalance.Sign() <= 0 {
			break
		}

		spend := new(big.Int).Set(t.ValueDelta)
		if spend.Cmp(next.IdleBalance) > 0 {
			spend = new(big.Int).Set(next.IdleBalance)
		}

		a := next.findAsset(t.Token)
		price, err := f.resolvePrice(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("fund: rebalance buy: %w", err)
		}
		out, err := f.swapBaseForToken(ctx, t.Token, spend, price)
		if err != nil {
			return nil, fmt.Errorf("fund: rebalance buy: %w", err)
		}
		next.IdleBalance.Sub(next.IdleBalance, spend)
		next.Holdings[t.Token] = new(big.Int).Add(next.holding(t.Token), out)

		filled := t
		filled.TokenAmount = out
		filled.ValueDelta = spend
		executed = append(executed, filled)
	}

	f.commit(next)

	total, err := f.totalValue(ctx, next)
	if err != nil {
		f.logger.Warn("rebalance post-trade valuation failed", "error", err)
	} else if weights, werr := f.weights(ctx, next, total); werr == nil {
		for _, w := range weights {
			f.logger.Info("post-rebalance weight",
				"token", w.Token.Hex(), "weight_bps", w.WeightBps)
		}
	}

	f.logger.Info("rebalance executed", "trades", len(executed))
	return executed, nil
}
