package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alphavault/fundd/internal/domain"
)

// keeperLockKey guards keeper cycles across daemon replicas. Only the
// replica holding the lock runs a cycle.
const keeperLockKey = "keeper"

// Keeper drives the scheduler-free engine on a fixed interval: each cycle
// collects accrued fees and executes a rebalance when drift exceeds the
// configured threshold. When an archiver is configured it additionally
// ships old activity rows to blob storage once a day.
type Keeper struct {
	funds    *FundService
	locks    domain.LockManager
	interval time.Duration
	lockTTL  time.Duration
	logger   *slog.Logger

	archiver      domain.Archiver
	activity      domain.ActivityStore
	retentionDays int
	lastArchive   time.Time
}

// NewKeeper creates a Keeper. The lock manager may be nil for
// single-replica deployments.
func NewKeeper(funds *FundService, locks domain.LockManager, interval, lockTTL time.Duration, logger *slog.Logger) *Keeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Keeper{
		funds:    funds,
		locks:    locks,
		interval: interval,
		lockTTL:  lockTTL,
		logger:   logger.With(slog.String("component", "keeper")),
	}
}

// EnableArchival configures daily archival of activity rows older than
// retentionDays. Archived rows are deleted from Postgres only after the
// upload succeeds.
func (k *Keeper) EnableArchival(archiver domain.Archiver, activity domain.ActivityStore, retentionDays int) {
	if retentionDays <= 0 {
		retentionDays = 90
	}
	k.archiver = archiver
	k.activity = activity
	k.retentionDays = retentionDays
}

// Run executes keeper cycles until the context is cancelled. An immediate
// cycle runs on startup, then one per interval.
func (k *Keeper) Run(ctx context.Context) error {
	k.logger.InfoContext(ctx, "keeper started",
		slog.Duration("interval", k.interval),
	)

	k.cycle(ctx)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.InfoContext(ctx, "keeper stopped")
			return ctx.Err()
		case <-ticker.C:
			k.cycle(ctx)
		}
	}
}

// cycle runs one fee-collection and rebalance pass under the distributed
// lock. Losing the lock race is normal in multi-replica deployments and
// just skips the cycle.
func (k *Keeper) cycle(ctx context.Context) {
	if k.locks != nil {
		unlock, err := k.locks.Acquire(ctx, keeperLockKey, k.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				k.logger.DebugContext(ctx, "keeper cycle skipped, lock held elsewhere")
				return
			}
			k.logger.WarnContext(ctx, "keeper lock acquire failed",
				slog.String("error", err.Error()),
			)
			return
		}
		defer unlock()
	}

	k.collectFees(ctx)
	k.rebalance(ctx)
	k.archive(ctx)
}

func (k *Keeper) collectFees(ctx context.Context) {
	breakdown, err := k.funds.CollectFees(ctx)
	if err != nil {
		k.logger.ErrorContext(ctx, "keeper fee collection failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if breakdown.SharesMinted != nil && breakdown.SharesMinted.Sign() > 0 {
		k.logger.InfoContext(ctx, "keeper collected fees",
			slog.String("shares_minted", breakdown.SharesMinted.String()),
			slog.Duration("elapsed", breakdown.Elapsed),
		)
	}
}

func (k *Keeper) rebalance(ctx context.Context) {
	suggestions, err := k.funds.PreviewRebalance(ctx)
	if err != nil {
		k.logger.ErrorContext(ctx, "keeper rebalance preview failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if len(suggestions) == 0 {
		return
	}

	trades, err := k.funds.Rebalance(ctx, k.funds.Engine().Operator())
	if err != nil {
		if errors.Is(err, domain.ErrRebalanceNotNeeded) {
			return
		}
		k.logger.ErrorContext(ctx, "keeper rebalance failed",
			slog.String("error", err.Error()),
		)
		return
	}

	k.logger.InfoContext(ctx, "keeper rebalanced fund",
		slog.Int("trades", len(trades)),
	)
}

// archive ships activity rows past the retention window to blob storage,
// then deletes them locally. Runs at most once per day.
func (k *Keeper) archive(ctx context.Context) {
	if k.archiver == nil {
		return
	}
	now := time.Now().UTC()
	if now.Sub(k.lastArchive) < 24*time.Hour {
		return
	}
	k.lastArchive = now

	cutoff := now.AddDate(0, 0, -k.retentionDays)

	count, err := k.archiver.ArchiveActivity(ctx, cutoff)
	if err != nil {
		k.logger.ErrorContext(ctx, "keeper activity archive failed",
			slog.String("error", err.Error()),
		)
		return
	}
	if count == 0 {
		return
	}

	deleted, err := k.activity.DeleteBefore(ctx, cutoff)
	if err != nil {
		k.logger.ErrorContext(ctx, "keeper activity prune failed",
			slog.String("error", err.Error()),
		)
		return
	}

	k.logger.InfoContext(ctx, "keeper archived activity",
		slog.Int64("archived", count),
		slog.Int64("deleted", deleted),
	)

	if _, err := k.archiver.ArchiveAudit(ctx, cutoff); err != nil {
		k.logger.WarnContext(ctx, "keeper audit archive failed",
			slog.String("error", err.Error()),
		)
	}
}
