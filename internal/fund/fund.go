// Package fund implements the pooled-investment accounting engine: share
// issuance and redemption, oracle-based valuation, weight-drift rebalance
// planning, and fee accrual. The engine is scheduler-free; fee collection
// and rebalancing happen when an external caller invokes them.
package fund

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fixedpoint"
)

// sharePriceUnit is 1e18, the fixed-point unit for share prices.
var sharePriceUnit = fixedpoint.Precision

// secondsPerYear pro-rates the annual management fee rate.
const secondsPerYear = 365 * 24 * 60 * 60

// Config holds the immutable parameters of a fund instance.
type Config struct {
	Operator              common.Address
	FeeRecipient          common.Address
	ManagementFeeBps      int64
	PerformanceFeeBps     int64
	RebalanceThresholdBps int64
	MinDeposit            *big.Int
	MaxSlippageBps        int64
	SwapDeadline          time.Duration
}

// Fund is the engine instance. All exported methods are safe for
// concurrent use; mutating methods fail fast with ErrReentrantCall rather
// than queue behind an in-flight operation, which also rejects reentrant
// calls from adapter callbacks.
type Fund struct {
	cfg      Config
	oracle   domain.Oracle
	exchange domain.ExchangeAdapter // nil disables trading
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.RWMutex
	state *State
}

// Option customizes a Fund at construction time.
type Option func(*Fund)

// WithExchange configures the swap adapter. Without one, deposits skip
// allocation, withdrawals pay from idle only, and rebalances execute no
// trades.
func WithExchange(ex domain.ExchangeAdapter) Option {
	return func(f *Fund) { f.exchange = ex }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Fund) { f.now = now }
}

// New creates a fund engine with an empty ledger.
func New(cfg Config, oracle domain.Oracle, logger *slog.Logger, opts ...Option) (*Fund, error) {
	if oracle == nil {
		return nil, fmt.Errorf("fund: oracle is required")
	}
	if cfg.MinDeposit == nil {
		cfg.MinDeposit = big.NewInt(0)
	}
	if cfg.SwapDeadline <= 0 {
		cfg.SwapDeadline = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Fund{
		cfg:    cfg,
		oracle: oracle,
		now:    time.Now,
		logger: logger.With("component", "fund"),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.state = newState(f.now())
	return f, nil
}

// lock acquires the write lock or reports a reentrant/concurrent call.
func (f *Fund) lock() error {
	if !f.mu.TryLock() {
		return fmt.Errorf("fund: operation in progress: %w", domain.ErrReentrantCall)
	}
	return nil
}

// commit swaps in the mutated state. Caller holds the write lock.
func (f *Fund) commit(next *State) {
	f.state = next
}

// requireOperator gates privileged operations.
func (f *Fund) requireOperator(caller common.Address) error {
	if caller != f.cfg.Operator {
		return fmt.Errorf("fund: caller %s is not the operator: %w", caller.Hex(), domain.ErrUnauthorized)
	}
	return nil
}

// Operator returns the configured operator address.
func (f *Fund) Operator() common.Address {
	return f.cfg.Operator
}

// BalanceOf returns a holder's share balance.
func (f *Fund) BalanceOf(holder common.Address) *big.Int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return new(big.Int).Set(f.state.balanceOf(holder))
}

// Paused reports whether deposits and withdrawals are suspended.
func (f *Fund) Paused() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Paused
}

// Pause suspends deposits and withdrawals. Valuation, previews, and fee
// collection stay available.
func (f *Fund) Pause(caller common.Address) error {
	if err := f.requireOperator(caller); err != nil {
		return err
	}
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.state.Paused = true
	f.logger.Info("fund paused", "caller", caller.Hex())
	return nil
}

// Unpause resumes deposits and withdrawals.
func (f *Fund) Unpause(caller common.Address) error {
	if err := f.requireOperator(caller); err != nil {
		return err
	}
	if err := f.lock(); err != nil {
		return err
	}
	defer f.mu.Unlock()

	f.state.Paused = false
	f.logger.Info("fund unpaused", "caller", caller.Hex())
	return nil
}

// Snapshot returns a point-in-time view of the fund for the API. Values
// are priced through the oracle at call time.
func (f *Fund) Snapshot(ctx context.Context) (domain.FundSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	s := f.state
	total, err := f.totalValue(ctx, s)
	if err != nil {
		return domain.FundSnapshot{}, fmt.Errorf("fund: snapshot valuation: %w", err)
	}

	snap := domain.FundSnapshot{
		TotalValue:        total,
		TotalShares:       new(big.Int).Set(s.TotalShares),
		SharePrice:        sharePrice(total, s.TotalShares),
		IdleBalance:       new(big.Int).Set(s.IdleBalance),
		HighWatermark:     new(big.Int).Set(s.HighWatermark),
		LastFeeCollection: s.LastFeeCollection,
		Paused:            s.Paused,
	}
	for _, a := range s.Assets {
		snap.Assets = append(snap.Assets, *a)
	}
	snap.Weights, err = f.weights(ctx, s, total)
	if err != nil {
		return domain.FundSnapshot{}, fmt.Errorf("fund: snapshot weights: %w", err)
	}
	return snap, nil
}
