package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alphavault/fundd/internal/domain"
	"github.com/alphavault/fundd/internal/server/middleware"
)

// FundService defines the methods that the fund handler requires.
type FundService interface {
	Snapshot(ctx context.Context) (domain.FundSnapshot, error)
	Deposit(ctx context.Context, holder common.Address, amount *big.Int) (*big.Int, error)
	Withdraw(ctx context.Context, holder common.Address, shares *big.Int) (*big.Int, error)
	PreviewRebalance(ctx context.Context) ([]domain.TradeSuggestion, error)
	Rebalance(ctx context.Context, caller common.Address) ([]domain.TradeSuggestion, error)
	CollectFees(ctx context.Context) (domain.FeeBreakdown, error)
	Pause(ctx context.Context, caller common.Address) error
	Unpause(ctx context.Context, caller common.Address) error
	Activity(ctx context.Context, opts domain.ListOpts) ([]domain.ActivityRecord, error)
	ActivityByHolder(ctx context.Context, holder common.Address, opts domain.ListOpts) ([]domain.ActivityRecord, error)
}

// FundHandler serves fund-level HTTP endpoints: state, ledger operations,
// rebalancing, fees, pause control, and activity history.
type FundHandler struct {
	funds  FundService
	logger *slog.Logger
}

// NewFundHandler creates a FundHandler with the given service and logger.
func NewFundHandler(funds FundService, logger *slog.Logger) *FundHandler {
	return &FundHandler{
		funds:  funds,
		logger: logger,
	}
}

// fundResponse is the wire form of a fund snapshot. Big integers are
// rendered as decimal strings so browser clients do not lose precision.
type fundResponse struct {
	TotalValue        string          `json:"total_value"`
	TotalShares       string          `json:"total_shares"`
	SharePrice        string          `json:"share_price"`
	IdleBalance       string          `json:"idle_balance"`
	HighWatermark     string          `json:"high_watermark"`
	LastFeeCollection string          `json:"last_fee_collection"`
	Paused            bool            `json:"paused"`
	Assets            []assetResponse `json:"assets"`
	Weights           []weightEntry   `json:"weights"`
}

type weightEntry struct {
	Token     string `json:"token"`
	WeightBps int64  `json:"weight_bps"`
	Value     string `json:"value"`
}

type tradeEntry struct {
	Token          string `json:"token"`
	Side           string `json:"side"`
	TokenAmount    string `json:"token_amount"`
	ValueDelta     string `json:"value_delta"`
	DeltaWeightBps int64  `json:"delta_weight_bps"`
}

// GetFund returns the current fund snapshot.
// GET /api/fund
func (h *FundHandler) GetFund(w http.ResponseWriter, r *http.Request) {
	snap, err := h.funds.Snapshot(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: fund snapshot failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	resp := fundResponse{
		TotalValue:        bigStr(snap.TotalValue),
		TotalShares:       bigStr(snap.TotalShares),
		SharePrice:        bigStr(snap.SharePrice),
		IdleBalance:       bigStr(snap.IdleBalance),
		HighWatermark:     bigStr(snap.HighWatermark),
		LastFeeCollection: snap.LastFeeCollection.UTC().Format(time.RFC3339),
		Paused:            snap.Paused,
		Assets:            toAssetResponses(snap.Assets),
		Weights:           make([]weightEntry, 0, len(snap.Weights)),
	}
	for _, wgt := range snap.Weights {
		resp.Weights = append(resp.Weights, weightEntry{
			Token:     wgt.Token.Hex(),
			WeightBps: wgt.WeightBps,
			Value:     bigStr(wgt.Value),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ledgerRequest is the request body for deposits and withdrawals.
type ledgerRequest struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"` // deposit: base currency, withdraw: shares
}

// Deposit credits base currency for the holder and mints shares.
// POST /api/fund/deposit
func (h *FundHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	holder, amount, ok := h.parseLedgerRequest(w, r)
	if !ok {
		return
	}

	shares, err := h.funds.Deposit(r.Context(), holder, amount)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: deposit failed",
			slog.String("holder", holder.Hex()),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder": holder.Hex(),
		"amount": amount.String(),
		"shares": shares.String(),
	})
}

// Withdraw burns the holder's shares and pays out base currency.
// POST /api/fund/withdraw
func (h *FundHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	holder, shares, ok := h.parseLedgerRequest(w, r)
	if !ok {
		return
	}

	payout, err := h.funds.Withdraw(r.Context(), holder, shares)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: withdraw failed",
			slog.String("holder", holder.Hex()),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"holder": holder.Hex(),
		"shares": shares.String(),
		"payout": payout.String(),
	})
}

// PreviewRebalance returns the trades a rebalance would execute.
// GET /api/fund/rebalance/preview
func (h *FundHandler) PreviewRebalance(w http.ResponseWriter, r *http.Request) {
	trades, err := h.funds.PreviewRebalance(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: rebalance preview failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"trades": toTradeEntries(trades)})
}

// Rebalance executes drift-correcting trades. Operator only.
// POST /api/fund/rebalance
func (h *FundHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "operator signature required")
		return
	}

	trades, err := h.funds.Rebalance(r.Context(), caller)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: rebalance failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"trades": toTradeEntries(trades)})
}

// CollectFees accrues and mints pending fees. Open to anyone.
// POST /api/fund/fees/collect
func (h *FundHandler) CollectFees(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.funds.CollectFees(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: fee collection failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"management_fee":  bigStr(breakdown.ManagementFee),
		"performance_fee": bigStr(breakdown.PerformanceFee),
		"shares_minted":   bigStr(breakdown.SharesMinted),
		"elapsed":         breakdown.Elapsed.String(),
	})
}

// Pause suspends deposits and withdrawals. Operator only.
// POST /api/fund/pause
func (h *FundHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Unpause resumes deposits and withdrawals. Operator only.
// POST /api/fund/unpause
func (h *FundHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *FundHandler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "operator signature required")
		return
	}

	var err error
	if paused {
		err = h.funds.Pause(r.Context(), caller)
	} else {
		err = h.funds.Unpause(r.Context(), caller)
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

// activityEntry is the wire form of an activity record.
type activityEntry struct {
	ID               string         `json:"id"`
	Kind             string         `json:"kind"`
	Holder           string         `json:"holder"`
	Amount           string         `json:"amount,omitempty"`
	Shares           string         `json:"shares,omitempty"`
	SharePriceBefore string         `json:"share_price_before,omitempty"`
	SharePriceAfter  string         `json:"share_price_after,omitempty"`
	Detail           map[string]any `json:"detail,omitempty"`
	CreatedAt        string         `json:"created_at"`
}

// ListActivity returns the fund activity journal, optionally filtered by
// holder.
// GET /api/fund/activity?holder=0x...&limit=50&offset=0
func (h *FundHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		records []domain.ActivityRecord
		err     error
	)
	if holderHex := r.URL.Query().Get("holder"); holderHex != "" {
		if !common.IsHexAddress(holderHex) {
			writeError(w, http.StatusBadRequest, "invalid holder address")
			return
		}
		records, err = h.funds.ActivityByHolder(r.Context(), common.HexToAddress(holderHex), opts)
	} else {
		records, err = h.funds.Activity(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list activity failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}

	entries := make([]activityEntry, 0, len(records))
	for _, rec := range records {
		entry := activityEntry{
			ID:        rec.ID,
			Kind:      string(rec.Kind),
			Holder:    rec.Holder.Hex(),
			Detail:    rec.Detail,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if rec.Amount != nil {
			entry.Amount = rec.Amount.String()
		}
		if rec.Shares != nil {
			entry.Shares = rec.Shares.String()
		}
		if rec.SharePriceBefore != nil {
			entry.SharePriceBefore = rec.SharePriceBefore.String()
		}
		if rec.SharePriceAfter != nil {
			entry.SharePriceAfter = rec.SharePriceAfter.String()
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"activity": entries})
}

// parseLedgerRequest decodes and validates a deposit/withdraw body.
func (h *FundHandler) parseLedgerRequest(w http.ResponseWriter, r *http.Request) (common.Address, *big.Int, bool) {
	var req ledgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return common.Address{}, nil, false
	}
	if !common.IsHexAddress(req.Holder) {
		writeError(w, http.StatusBadRequest, "invalid holder address")
		return common.Address{}, nil, false
	}
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal string")
		return common.Address{}, nil, false
	}
	return common.HexToAddress(req.Holder), amount, true
}

func toTradeEntries(trades []domain.TradeSuggestion) []tradeEntry {
	entries := make([]tradeEntry, 0, len(trades))
	for _, t := range trades {
		entries = append(entries, tradeEntry{
			Token:          t.Token.Hex(),
			Side:           string(t.Side),
			TokenAmount:    bigStr(t.TokenAmount),
			ValueDelta:     bigStr(t.ValueDelta),
			DeltaWeightBps: t.DeltaWeightBps,
		})
	}
	return entries
}

func bigStr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
