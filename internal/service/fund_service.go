// Package service coordinates the fund engine with persistence, caching,
// event publishing, and notifications.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/fund"
	"github.com/alphavault/fundd/internal/notify"
)

// eventChannel is the pub/sub channel and stream name for fund events.
const eventChannel = "fund"

// FundService wraps the fund engine with activity journaling, audit
// logging, event publishing, and operator notifications. Engine errors are
// returned as-is so callers can match sentinel errors; journaling failures
// are logged but never fail the underlying operation.
type FundService struct {
	engine   *fund.Fund
	activity domain.ActivityStore
	audit    domain.AuditStore
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewFundService creates a FundService. The notifier may be nil when no
// notification channels are configured.
func NewFundService(
	engine *fund.Fund,
	activity domain.ActivityStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *FundService {
	return &FundService{
		engine:   engine,
		activity: activity,
		audit:    audit,
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "fund_service")),
	}
}

// Engine exposes the underlying engine for read-only callers.
func (s *FundService) Engine() *fund.Fund {
	return s.engine
}

// Deposit credits base currency for the holder, mints shares, and records
// the operation.
func (s *FundService) Deposit(ctx context.Context, holder common.Address, amount *big.Int) (*big.Int, error) {
	priceBefore := s.sharePriceOrNil(ctx)

	shares, err := s.engine.Deposit(ctx, holder, amount)
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:               uuid.NewString(),
		Kind:             domain.ActivityDeposit,
		Holder:           holder,
		Amount:           new(big.Int).Set(amount),
		Shares:           shares,
		SharePriceBefore: priceBefore,
		SharePriceAfter:  s.sharePriceOrNil(ctx),
		CreatedAt:        time.Now().UTC(),
	})

	s.notify(ctx, "deposit", "Deposit",
		fmt.Sprintf("%s deposited %s, minted %s shares", holder.Hex(), amount, shares))

	return shares, nil
}

// Withdraw burns the holder's shares and pays out their proportional slice
// of the fund.
func (s *FundService) Withdraw(ctx context.Context, holder common.Address, shares *big.Int) (*big.Int, error) {
	priceBefore := s.sharePriceOrNil(ctx)

	payout, err := s.engine.Withdraw(ctx, holder, shares)
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:               uuid.NewString(),
		Kind:             domain.ActivityWithdraw,
		Holder:           holder,
		Amount:           payout,
		Shares:           new(big.Int).Set(shares),
		SharePriceBefore: priceBefore,
		SharePriceAfter:  s.sharePriceOrNil(ctx),
		CreatedAt:        time.Now().UTC(),
	})

	s.notify(ctx, "withdraw", "Withdrawal",
		fmt.Sprintf("%s burned %s shares for %s", holder.Hex(), shares, payout))

	return payout, nil
}

// PreviewRebalance returns the trades the engine would execute without
// touching state.
func (s *FundService) PreviewRebalance(ctx context.Context) ([]domain.TradeSuggestion, error) {
	return s.engine.PreviewRebalance(ctx)
}

// Rebalance executes drift-correcting trades and records the operation.
func (s *FundService) Rebalance(ctx context.Context, caller common.Address) ([]domain.TradeSuggestion, error) {
	priceBefore := s.sharePriceOrNil(ctx)

	trades, err := s.engine.Rebalance(ctx, caller)
	if err != nil {
		return nil, err
	}

	detail := map[string]any{"trades": len(trades)}
	for _, t := range trades {
		detail[t.Token.Hex()] = map[string]any{
			"side":   string(t.Side),
			"amount": t.TokenAmount.String(),
			"value":  t.ValueDelta.String(),
		}
	}

	s.record(ctx, domain.ActivityRecord{
		ID:               uuid.NewString(),
		Kind:             domain.ActivityRebalance,
		Holder:           caller,
		SharePriceBefore: priceBefore,
		SharePriceAfter:  s.sharePriceOrNil(ctx),
		Detail:           detail,
		CreatedAt:        time.Now().UTC(),
	})

	s.notify(ctx, "rebalance", "Rebalance executed",
		fmt.Sprintf("%d trades executed", len(trades)))

	return trades, nil
}

// CollectFees accrues management and performance fees and records the
// share mint.
func (s *FundService) CollectFees(ctx context.Context) (domain.FeeBreakdown, error) {
	priceBefore := s.sharePriceOrNil(ctx)

	breakdown, err := s.engine.CollectFees(ctx)
	if err != nil {
		return domain.FeeBreakdown{}, err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:               uuid.NewString(),
		Kind:             domain.ActivityFee,
		Holder:           s.engine.Operator(),
		Amount:           breakdown.ManagementFee,
		Shares:           breakdown.SharesMinted,
		SharePriceBefore: priceBefore,
		SharePriceAfter:  s.sharePriceOrNil(ctx),
		Detail: map[string]any{
			"management_fee":  bigString(breakdown.ManagementFee),
			"performance_fee": bigString(breakdown.PerformanceFee),
			"elapsed":         breakdown.Elapsed.String(),
		},
		CreatedAt: time.Now().UTC(),
	})

	if breakdown.SharesMinted != nil && breakdown.SharesMinted.Sign() > 0 {
		s.notify(ctx, "fee", "Fees collected",
			fmt.Sprintf("minted %s fee shares (mgmt %s, perf %s)",
				breakdown.SharesMinted, bigString(breakdown.ManagementFee), bigString(breakdown.PerformanceFee)))
	}

	return breakdown, nil
}

// AddAsset registers a new asset in the fund.
func (s *FundService) AddAsset(ctx context.Context, caller common.Address, asset domain.Asset) error {
	if err := s.engine.AddAsset(caller, asset); err != nil {
		return err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:     uuid.NewString(),
		Kind:   domain.ActivityAssetChange,
		Holder: caller,
		Detail: map[string]any{
			"action": "add",
			"token":  asset.Token.Hex(),
			"target": asset.TargetWeight,
			"min":    asset.MinWeight,
			"max":    asset.MaxWeight,
		},
		CreatedAt: time.Now().UTC(),
	})
	s.auditLog(ctx, "asset_added", map[string]any{
		"token":  asset.Token.Hex(),
		"target": asset.TargetWeight,
	})
	return nil
}

// UpdateAssetWeight changes the weight bounds of a registered asset.
func (s *FundService) UpdateAssetWeight(ctx context.Context, caller, token common.Address, target, min, max int64) error {
	if err := s.engine.UpdateAssetWeight(caller, token, target, min, max); err != nil {
		return err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:     uuid.NewString(),
		Kind:   domain.ActivityAssetChange,
		Holder: caller,
		Detail: map[string]any{
			"action": "update",
			"token":  token.Hex(),
			"target": target,
			"min":    min,
			"max":    max,
		},
		CreatedAt: time.Now().UTC(),
	})
	s.auditLog(ctx, "asset_updated", map[string]any{
		"token":  token.Hex(),
		"target": target,
	})
	return nil
}

// RemoveAsset deactivates an asset and releases its holding to operator
// custody. The released token amount is returned.
func (s *FundService) RemoveAsset(ctx context.Context, caller, token common.Address) (*big.Int, error) {
	released, err := s.engine.RemoveAsset(caller, token)
	if err != nil {
		return nil, err
	}

	s.record(ctx, domain.ActivityRecord{
		ID:     uuid.NewString(),
		Kind:   domain.ActivityAssetChange,
		Holder: caller,
		Amount: released,
		Detail: map[string]any{
			"action": "remove",
			"token":  token.Hex(),
		},
		CreatedAt: time.Now().UTC(),
	})
	s.auditLog(ctx, "asset_removed", map[string]any{
		"token":    token.Hex(),
		"released": released.String(),
	})
	return released, nil
}

// Pause suspends deposits and withdrawals.
func (s *FundService) Pause(ctx context.Context, caller common.Address) error {
	if err := s.engine.Pause(caller); err != nil {
		return err
	}
	s.record(ctx, domain.ActivityRecord{
		ID:        uuid.NewString(),
		Kind:      domain.ActivityPause,
		Holder:    caller,
		Detail:    map[string]any{"paused": true},
		CreatedAt: time.Now().UTC(),
	})
	s.auditLog(ctx, "fund_paused", map[string]any{"caller": caller.Hex()})
	return nil
}

// Unpause resumes deposits and withdrawals.
func (s *FundService) Unpause(ctx context.Context, caller common.Address) error {
	if err := s.engine.Unpause(caller); err != nil {
		return err
	}
	s.record(ctx, domain.ActivityRecord{
		ID:        uuid.NewString(),
		Kind:      domain.ActivityPause,
		Holder:    caller,
		Detail:    map[string]any{"paused": false},
		CreatedAt: time.Now().UTC(),
	})
	s.auditLog(ctx, "fund_unpaused", map[string]any{"caller": caller.Hex()})
	return nil
}

// Snapshot returns the current engine state priced through the oracle.
func (s *FundService) Snapshot(ctx context.Context) (domain.FundSnapshot, error) {
	return s.engine.Snapshot(ctx)
}

// Activity returns journal entries with pagination and optional time
// filtering.
func (s *FundService) Activity(ctx context.Context, opts domain.ListOpts) ([]domain.ActivityRecord, error) {
	records, err := s.activity.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("fund_service: list activity: %w", err)
	}
	return records, nil
}

// ActivityByHolder returns journal entries for a single holder.
func (s *FundService) ActivityByHolder(ctx context.Context, holder common.Address, opts domain.ListOpts) ([]domain.ActivityRecord, error) {
	records, err := s.activity.ListByHolder(ctx, holder, opts)
	if err != nil {
		return nil, fmt.Errorf("fund_service: list activity by holder: %w", err)
	}
	return records, nil
}

// record persists an activity record and publishes it as a fund event.
// Failures are logged, not propagated: the engine operation has already
// committed.
func (s *FundService) record(ctx context.Context, rec domain.ActivityRecord) {
	if s.activity != nil {
		if err := s.activity.Insert(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "fund_service: insert activity failed",
				slog.String("id", rec.ID),
				slog.String("kind", string(rec.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":              string(rec.Kind),
		"id":                 rec.ID,
		"holder":             rec.Holder.Hex(),
		"amount":             bigString(rec.Amount),
		"shares":             bigString(rec.Shares),
		"share_price_before": bigString(rec.SharePriceBefore),
		"share_price_after":  bigString(rec.SharePriceAfter),
		"timestamp":          rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err := s.bus.Publish(ctx, eventChannel, evt); err != nil {
		s.logger.WarnContext(ctx, "fund_service: publish event failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.bus.StreamAppend(ctx, eventChannel, evt); err != nil {
		s.logger.WarnContext(ctx, "fund_service: stream append failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// auditLog writes an audit entry, logging failures.
func (s *FundService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "fund_service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// notify delivers a filtered operator notification, logging failures.
func (s *FundService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "fund_service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// sharePriceOrNil reads the current share price, returning nil when the
// oracle is unavailable. Journal rows tolerate missing prices.
func (s *FundService) sharePriceOrNil(ctx context.Context) *big.Int {
	price, err := s.engine.SharePrice(ctx)
	if err != nil {
		return nil
	}
	return price
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
