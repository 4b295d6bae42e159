package fund

import (
	"context"
	"fmt"
	"math/big"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

// CollectFees accrues the management fee for the elapsed interval and the
// performance fee on gains above the high-watermark, minting the combined
// value as dilutive shares to the fee recipient. Callable by anyone; fee
// timing is not gate-kept. The collection timestamp always advances so a
// past interval is never re-charged.
func (f *Fund) CollectFees(ctx context.Context) (domain.FeeBreakdown, error) {
	if err := f.lock(); err != nil {
		return domain.FeeBreakdown{}, err
	}
	defer f.mu.Unlock()

	now := f.now()
	elapsed := now.Sub(f.state.LastFeeCollection)
	if elapsed < 0 {
		elapsed = 0
	}

	total, err := f.totalValue(ctx, f.state)
	if err != nil {
		return domain.FeeBreakdown{}, fmt.Errorf("fund: fee valuation: %w", err)
	}

	next := f.state.clone()

	// managementFee = total * mgmtBps * elapsedSeconds / secondsPerYear / 10000
	mgmt := new(big.Int).Mul(total, big.NewInt(f.cfg.ManagementFeeBps))
	mgmt.Mul(mgmt, big.NewInt(int64(elapsed.Seconds())))
	mgmt.Quo(mgmt, big.NewInt(secondsPerYear))
	mgmt.Quo(mgmt, bpsDenom)

	perf := big.NewInt(0)
	if next.TotalShares.Sign() > 0 && total.Sign() > 0 {
		price := sharePrice(total, next.TotalShares)
		if price.Cmp(next.HighWatermark) > 0 {
			gainPerShare := new(big.Int).Sub(price, next.HighWatermark)
			profit := fixedpoint.MulDiv(gainPerShare, next.TotalShares, fixedpoint.Precision)
			perf = fixedpoint.MulDiv(profit, big.NewInt(f.cfg.PerformanceFeeBps), bpsDenom)

			// The watermark tracks peak share price even at a zero
			// performance rate.
			next.HighWatermark.Set(price)
		}
	}

	totalFees := new(big.Int).Add(mgmt, perf)
	minted := big.NewInt(0)
	if totalFees.Sign() > 0 && next.TotalShares.Sign() > 0 {
		minted = fixedpoint.MulDiv(totalFees, next.TotalShares, total)
		next.credit(f.cfg.FeeRecipient, minted)
		next.TotalShares.Add(next.TotalShares, minted)
	}

	next.LastFeeCollection = now
	f.commit(next)

	if minted.Sign() > 0 {
		f.logger.Info("fees collected",
			"management", mgmt.String(), "performance", perf.String(),
			"shares_minted", minted.String(), "elapsed", elapsed.String())
	}

	return domain.FeeBreakdown{
		ManagementFee:  mgmt,
		PerformanceFee: perf,
		SharesMinted:   minted,
		Elapsed:        elapsed,
	}, nil
}
