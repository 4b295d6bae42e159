package fund

import (
	"context"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/exchange"
	"github.com/alphavault/fundd/internal/fixedpoint"
	"github.com/alphavault/fundd/internal/oracle"
)

var (
	operator     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob          = common.HexToAddress("0x0000000000000000000000000000000000000b22")

	tokenA = common.HexToAddress("0x0000000000000000000000000000000000000101")
	tokenB = common.HexToAddress("0x0000000000000000000000000000000000000102")
	feedA  = common.HexToAddress("0x0000000000000000000000000000000000000201")
	feedB  = common.HexToAddress("0x0000000000000000000000000000000000000202")
)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), fixedpoint.Precision)
}

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestClock() *testClock {
	return &testClock{t: time.Unix(1_700_000_000, 0)}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestFund(t *testing.T, cfg Config, opts ...Option) (*Fund, *oracle.Static, *testClock) {
	t.Helper()

	orc := oracle.NewStatic()
	orc.Set(feedA, fixedpoint.Precision, 18) // 1.0
	orc.Set(feedB, fixedpoint.Precision, 18)

	clock := newTestClock()
	opts = append([]Option{WithClock(clock.now)}, opts...)

	f, err := New(cfg, orc, discard(), opts...)
	require.NoError(t, err)
	return f, orc, clock
}

func defaultConfig() Config {
	return Config{
		Operator:              operator,
		FeeRecipient:          feeRecipient,
		ManagementFeeBps:      200,
		PerformanceFeeBps:     2000,
		RebalanceThresholdBps: 500,
		MinDeposit:            big.NewInt(1),
	}
}

func addAsset(t *testing.T, f *Fund, token, feed common.Address, target int64) {
	t.Helper()
	require.NoError(t, f.AddAsset(operator, domain.Asset{
		Token:        token,
		PriceFeed:    feed,
		TargetWeight: target,
		MinWeight:    0,
		MaxWeight:    10000,
	}))
}

// simulatedExchange wires a zero-slippage simulated venue over both feeds.
func simulatedExchange(orc *oracle.Static, slippageBps int64) domain.ExchangeAdapter {
	return exchange.NewSimulated(orc, map[common.Address]common.Address{
		tokenA: feedA,
		tokenB: feedB,
	}, slippageBps)
}

func TestDepositBootstrap(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())

	shares, err := f.Deposit(context.Background(), alice, e18(100))
	require.NoError(t, err)
	assert.Equal(t, e18(100), shares)

	price, err := f.SharePrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Precision, price)
}

func TestDepositBelowMinimum(t *testing.T) {
	cfg := defaultConfig()
	cfg.MinDeposit = e18(10)
	f, _, _ := newTestFund(t, cfg)

	_, err := f.Deposit(context.Background(), alice, e18(9))
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.Deposit(context.Background(), alice, e18(10))
	assert.NoError(t, err)
}

func TestDepositProportionality(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	// No price movement: 40 into a fund worth 100 with 100 shares
	// outstanding mints exactly 40 shares.
	shares, err := f.Deposit(ctx, bob, e18(40))
	require.NoError(t, err)
	assert.Equal(t, e18(40), shares)
	assert.Equal(t, e18(40), f.BalanceOf(bob))
}

func TestDepositWithdrawRoundTrip(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)
	shares, err := f.Deposit(ctx, bob, e18(40))
	require.NoError(t, err)

	payout, err := f.Withdraw(ctx, bob, shares)
	require.NoError(t, err)
	assert.Equal(t, e18(40), payout)
	assert.Equal(t, big.NewInt(0), f.BalanceOf(bob))
}

func TestSharePriceUnchangedByLedgerOps(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)
	_, err = f.Deposit(ctx, bob, e18(37))
	require.NoError(t, err)
	_, err = f.Withdraw(ctx, alice, e18(50))
	require.NoError(t, err)

	price, err := f.SharePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Precision, price)
}

func TestWithdrawInsufficientBalance(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(10))
	require.NoError(t, err)

	_, err = f.Withdraw(ctx, alice, e18(11))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestDepositAllocationGreedyOrder(t *testing.T) {
	// Both assets target 8000 bps. A 100-unit deposit cannot fund both
	// deficits; the first-registered asset is funded in full and the
	// second takes what is left.
	cfg := defaultConfig()
	f, orc, _ := newTestFund(t, cfg)
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 8000)
	addAsset(t, f, tokenB, feedB, 8000)

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	assert.Equal(t, e18(80), f.AssetHolding(tokenA))
	assert.Equal(t, e18(20), f.AssetHolding(tokenB))

	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), snap.IdleBalance)
	assert.Equal(t, e18(100), snap.TotalValue)
}

func TestDepositAllocationFullyFunded(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 6000)
	addAsset(t, f, tokenB, feedB, 4000)

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	assert.Equal(t, e18(60), f.AssetHolding(tokenA))
	assert.Equal(t, e18(40), f.AssetHolding(tokenB))
}

func TestDepositWithoutAdapterSkipsAllocation(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(0), f.AssetHolding(tokenA))
	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(100), snap.IdleBalance)
}

func TestWithdrawWithoutAdapterPaysIdleSliceOnly(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	// Simulate invested holdings: half the value sits in tokenA.
	addAsset(t, f, tokenA, feedA, 5000)
	f.state.IdleBalance = e18(50)
	f.state.Holdings[tokenA] = e18(50)

	payout, err := f.Withdraw(ctx, alice, e18(50))
	require.NoError(t, err)

	// Half of the idle balance, nothing from holdings.
	assert.Equal(t, e18(25), payout)
	assert.Equal(t, e18(50), f.AssetHolding(tokenA))
}

func TestWithdrawWithAdapterLiquidatesProportionally(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 6000)
	addAsset(t, f, tokenB, feedB, 4000)

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	payout, err := f.Withdraw(ctx, alice, e18(50))
	require.NoError(t, err)

	assert.Equal(t, e18(50), payout)
	assert.Equal(t, e18(30), f.AssetHolding(tokenA))
	assert.Equal(t, e18(20), f.AssetHolding(tokenB))
}

func TestCollectFeesZeroElapsedMintsNothing(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	fees, err := f.CollectFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), fees.SharesMinted)

	fees, err = f.CollectFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), fees.SharesMinted)
	assert.Equal(t, big.NewInt(0), f.BalanceOf(feeRecipient))
}

func TestCollectFeesManagementAccrual(t *testing.T) {
	cfg := defaultConfig()
	cfg.PerformanceFeeBps = 0
	f, _, clock := newTestFund(t, cfg)
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(1000))
	require.NoError(t, err)

	clock.advance(365 * 24 * time.Hour)

	fees, err := f.CollectFees(ctx)
	require.NoError(t, err)

	// 2% of 1000 over exactly one year.
	assert.Equal(t, e18(20), fees.ManagementFee)
	assert.Equal(t, e18(20), fees.SharesMinted)
	assert.Equal(t, e18(20), f.BalanceOf(feeRecipient))

	// The mint dilutes holders: value unchanged, supply grew.
	price, err := f.SharePrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixedpoint.Precision.Cmp(price))
}

func TestCollectFeesPerformanceAboveWatermark(t *testing.T) {
	cfg := defaultConfig()
	cfg.ManagementFeeBps = 0
	f, orc, _ := newTestFund(t, cfg)
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)
	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	// Price rises 50%: share price 1.5, gain 0.5 per share, profit 50,
	// performance fee 20% of that.
	orc.Set(feedA, new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)), 18)

	fees, err := f.CollectFees(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(10), fees.PerformanceFee)
	assert.True(t, fees.SharesMinted.Sign() > 0)

	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	want := new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17))
	assert.Equal(t, want, snap.HighWatermark)
}

func TestHighWatermarkMonotonic(t *testing.T) {
	cfg := defaultConfig()
	cfg.ManagementFeeBps = 0
	cfg.PerformanceFeeBps = 0
	f, orc, _ := newTestFund(t, cfg)
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)
	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	// Up 2x: watermark follows even at a zero performance rate.
	orc.Set(feedA, e18(2), 18)
	_, err = f.CollectFees(ctx)
	require.NoError(t, err)

	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(2), snap.HighWatermark)

	// Down 4x: watermark holds.
	orc.Set(feedA, new(big.Int).Quo(fixedpoint.Precision, big.NewInt(2)), 18)
	_, err = f.CollectFees(ctx)
	require.NoError(t, err)

	snap, err = f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(2), snap.HighWatermark)
}

func TestPreviewRebalanceDriftDetection(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 5000)
	addAsset(t, f, tokenB, feedB, 5000)

	// Actual split 7000/3000 against 5000/5000 targets, threshold 500.
	f.state.Holdings[tokenA] = e18(70)
	f.state.Holdings[tokenB] = e18(30)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	plan, err := f.PreviewRebalance(ctx)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	assert.Equal(t, tokenA, plan[0].Token)
	assert.Equal(t, domain.TradeSideSell, plan[0].Side)
	assert.Equal(t, int64(2000), plan[0].DeltaWeightBps)
	assert.Equal(t, e18(20), plan[0].TokenAmount)

	assert.Equal(t, tokenB, plan[1].Token)
	assert.Equal(t, domain.TradeSideBuy, plan[1].Side)
	assert.Equal(t, int64(2000), plan[1].DeltaWeightBps)
	assert.Equal(t, e18(20), plan[1].TokenAmount)
}

func TestPreviewRebalanceOmitsAssetsWithinThreshold(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 5000)
	addAsset(t, f, tokenB, feedB, 5000)

	// 5200/4800: both within the 500 bps threshold.
	f.state.Holdings[tokenA] = e18(52)
	f.state.Holdings[tokenB] = e18(48)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	plan, err := f.PreviewRebalance(ctx)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestRebalanceNotNeeded(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 5000)
	addAsset(t, f, tokenB, feedB, 5000)
	f.state.Holdings[tokenA] = e18(50)
	f.state.Holdings[tokenB] = e18(50)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	_, err := f.Rebalance(ctx, operator)
	assert.ErrorIs(t, err, domain.ErrRebalanceNotNeeded)
}

func TestRebalanceRequiresOperator(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())

	_, err := f.Rebalance(context.Background(), alice)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestRebalanceSellsFundBuys(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 5000)
	addAsset(t, f, tokenB, feedB, 5000)
	f.state.Holdings[tokenA] = e18(70)
	f.state.Holdings[tokenB] = e18(30)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	trades, err := f.Rebalance(ctx, operator)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Sell proceeds funded the buy; zero slippage makes it exact.
	assert.Equal(t, e18(50), f.AssetHolding(tokenA))
	assert.Equal(t, e18(50), f.AssetHolding(tokenB))

	weights, err := f.CurrentWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), weights[0].WeightBps)
	assert.Equal(t, int64(5000), weights[1].WeightBps)
}

func TestRebalanceBuyCappedByIdle(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	f.exchange = simulatedExchange(orc, 0)
	ctx := context.Background()

	// Both assets are underweight buys; idle currency covers only half of
	// the first deficit, so the first buy is clipped and the second is
	// skipped entirely. No borrowing happens.
	addAsset(t, f, tokenA, feedA, 8000)
	addAsset(t, f, tokenB, feedB, 8000)
	f.state.Holdings[tokenA] = e18(40)
	f.state.Holdings[tokenB] = e18(40)
	f.state.IdleBalance = e18(20)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	trades, err := f.Rebalance(ctx, operator)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, tokenA, trades[0].Token)
	assert.Equal(t, e18(20), trades[0].TokenAmount)

	assert.Equal(t, e18(60), f.AssetHolding(tokenA))
	assert.Equal(t, e18(40), f.AssetHolding(tokenB))
}

func TestAddAssetBoundsValidation(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())

	cases := []struct {
		name             string
		target, min, max int64
		wantErr          error
	}{
		{"min above target", 4000, 5000, 10000, domain.ErrInvalidAssetBounds},
		{"zero target", 0, 0, 10000, domain.ErrInvalidAssetBounds},
		{"max below target", 5000, 0, 4000, domain.ErrInvalidAssetBounds},
		{"target above denominator", 10001, 0, 10000, domain.ErrInvalidAssetBounds},
		{"full range", 10000, 0, 10000, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.AddAsset(operator, domain.Asset{
				Token:        tokenA,
				PriceFeed:    feedA,
				TargetWeight: tc.target,
				MinWeight:    tc.min,
				MaxWeight:    tc.max,
			})
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAddAssetDuplicate(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())

	addAsset(t, f, tokenA, feedA, 5000)
	err := f.AddAsset(operator, domain.Asset{
		Token: tokenA, PriceFeed: feedA, TargetWeight: 3000, MaxWeight: 10000,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// Removal deactivates but never frees the identifier.
	_, err = f.RemoveAsset(operator, tokenA)
	require.NoError(t, err)
	err = f.AddAsset(operator, domain.Asset{
		Token: tokenA, PriceFeed: feedA, TargetWeight: 3000, MaxWeight: 10000,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUpdateAssetWeight(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())

	err := f.UpdateAssetWeight(operator, tokenA, 5000, 0, 10000)
	assert.ErrorIs(t, err, domain.ErrAssetNotFound)

	addAsset(t, f, tokenA, feedA, 5000)
	require.NoError(t, f.UpdateAssetWeight(operator, tokenA, 6000, 1000, 9000))

	assets := f.Assets()
	require.Len(t, assets, 1)
	assert.Equal(t, int64(6000), assets[0].TargetWeight)

	_, err = f.RemoveAsset(operator, tokenA)
	require.NoError(t, err)
	err = f.UpdateAssetWeight(operator, tokenA, 5000, 0, 10000)
	assert.ErrorIs(t, err, domain.ErrInactiveAsset)
}

func TestRemoveAssetExcludesFromValuation(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 5000)
	f.state.Holdings[tokenA] = e18(50)
	f.state.IdleBalance = e18(50)
	f.state.TotalShares = e18(100)
	f.state.Ledger[alice] = e18(100)

	released, err := f.RemoveAsset(operator, tokenA)
	require.NoError(t, err)
	assert.Equal(t, e18(50), released)

	total, err := f.TotalValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(50), total)
}

func TestPauseGating(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	_, err := f.Deposit(ctx, alice, e18(100))
	require.NoError(t, err)

	assert.ErrorIs(t, f.Pause(alice), domain.ErrUnauthorized)
	require.NoError(t, f.Pause(operator))

	_, err = f.Deposit(ctx, alice, e18(10))
	assert.ErrorIs(t, err, domain.ErrPaused)
	_, err = f.Withdraw(ctx, alice, e18(10))
	assert.ErrorIs(t, err, domain.ErrPaused)

	// Reads stay available while paused.
	_, err = f.PreviewRebalance(ctx)
	assert.NoError(t, err)
	_, err = f.Snapshot(ctx)
	assert.NoError(t, err)

	require.NoError(t, f.Unpause(operator))
	_, err = f.Deposit(ctx, alice, e18(10))
	assert.NoError(t, err)
}

func TestInvalidPriceAbortsValuation(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)
	f.state.Holdings[tokenA] = e18(10)
	f.state.TotalShares = e18(10)
	f.state.Ledger[alice] = e18(10)

	orc.Set(feedA, big.NewInt(0), 18)

	_, err := f.TotalValue(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = f.Deposit(ctx, bob, e18(5))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestPriceRescalingAcrossDecimals(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	ctx := context.Background()

	// An 8-decimal feed quoting 2.0 values a 10-token holding at 20.
	orc.Set(feedA, big.NewInt(200_000_000), 8)
	addAsset(t, f, tokenA, feedA, 10000)
	f.state.Holdings[tokenA] = e18(10)

	total, err := f.TotalValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, e18(20), total)
}

// reentrantAdapter calls back into the fund mid-swap, standing in for a
// malicious venue.
type reentrantAdapter struct {
	f        *Fund
	innerErr error
}

func (r *reentrantAdapter) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int, deadline time.Time) (*big.Int, error) {
	_, r.innerErr = r.f.Deposit(ctx, bob, e18(10))
	if r.innerErr != nil {
		return nil, r.innerErr
	}
	return amountIn, nil
}

func TestReentrantCallRejected(t *testing.T) {
	f, _, _ := newTestFund(t, defaultConfig())
	adapter := &reentrantAdapter{f: f}
	f.exchange = adapter
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)

	_, err := f.Deposit(ctx, alice, e18(100))
	assert.ErrorIs(t, err, domain.ErrReentrantCall)
	assert.ErrorIs(t, adapter.innerErr, domain.ErrReentrantCall)

	// The aborted deposit left nothing behind.
	assert.Equal(t, big.NewInt(0), f.BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), f.BalanceOf(bob))
	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), snap.TotalShares)
	assert.Equal(t, big.NewInt(0), snap.IdleBalance)
}

func TestSwapFailureAbortsDeposit(t *testing.T) {
	f, orc, _ := newTestFund(t, defaultConfig())
	// A 10% haircut cannot satisfy the 0-slippage floor the engine
	// derives, so the allocation swap fails and the deposit rolls back.
	f.exchange = simulatedExchange(orc, 1000)
	ctx := context.Background()

	addAsset(t, f, tokenA, feedA, 10000)

	_, err := f.Deposit(ctx, alice, e18(100))
	require.Error(t, err)

	assert.Equal(t, big.NewInt(0), f.BalanceOf(alice))
	snap, err := f.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), snap.TotalShares)
	assert.Equal(t, big.NewInt(0), snap.IdleBalance)
}
