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

// AssetService defines the methods that the asset handler requires.
type AssetService interface {
	AddAsset(ctx context.Context, caller common.Address, asset domain.Asset) error
	UpdateAssetWeight(ctx context.Context, caller, token common.Address, target, min, max int64) error
	RemoveAsset(ctx context.Context, caller, token common.Address) (*big.Int, error)
	Snapshot(ctx context.Context) (domain.FundSnapshot, error)
}

// AssetHandler serves the asset registry endpoints.
type AssetHandler struct {
	assets AssetService
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler with the given service and logger.
func NewAssetHandler(assets AssetService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{
		assets: assets,
		logger: logger,
	}
}

// assetResponse is the wire form of a registered asset.
type assetResponse struct {
	Token        string `json:"token"`
	PriceFeed    string `json:"price_feed"`
	TargetWeight int64  `json:"target_weight_bps"`
	MinWeight    int64  `json:"min_weight_bps"`
	MaxWeight    int64  `json:"max_weight_bps"`
	Active       bool   `json:"active"`
	AddedAt      string `json:"added_at"`
}

func toAssetResponses(assets []domain.Asset) []assetResponse {
	out := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetResponse{
			Token:        a.Token.Hex(),
			PriceFeed:    a.PriceFeed.Hex(),
			TargetWeight: a.TargetWeight,
			MinWeight:    a.MinWeight,
			MaxWeight:    a.MaxWeight,
			Active:       a.Active,
			AddedAt:      a.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// ListAssets returns the full asset registry, active and inactive.
// GET /api/fund/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	snap, err := h.assets.Snapshot(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list assets failed",
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"assets": toAssetResponses(snap.Assets)})
}

// assetRequest is the request body for adding or updating an asset.
type assetRequest struct {
	Token        string `json:"token"`
	PriceFeed    string `json:"price_feed"`
	TargetWeight int64  `json:"target_weight_bps"`
	MinWeight    int64  `json:"min_weight_bps"`
	MaxWeight    int64  `json:"max_weight_bps"`
}

// AddAsset registers a new asset in the fund. Operator only.
// POST /api/fund/assets
func (h *AssetHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "operator signature required")
		return
	}

	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !common.IsHexAddress(req.Token) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}
	if !common.IsHexAddress(req.PriceFeed) {
		writeError(w, http.StatusBadRequest, "invalid price feed address")
		return
	}

	asset := domain.Asset{
		Token:        common.HexToAddress(req.Token),
		PriceFeed:    common.HexToAddress(req.PriceFeed),
		TargetWeight: req.TargetWeight,
		MinWeight:    req.MinWeight,
		MaxWeight:    req.MaxWeight,
	}

	if err := h.assets.AddAsset(r.Context(), caller, asset); err != nil {
		h.logger.WarnContext(r.Context(), "handler: add asset failed",
			slog.String("token", req.Token),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"token": asset.Token.Hex()})
}

// UpdateAsset changes the weight bounds of a registered asset. Operator only.
// PUT /api/fund/assets/{token}
func (h *AssetHandler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "operator signature required")
		return
	}

	tokenHex := pathParam(r, "token")
	if !common.IsHexAddress(tokenHex) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token := common.HexToAddress(tokenHex)
	if err := h.assets.UpdateAssetWeight(r.Context(), caller, token, req.TargetWeight, req.MinWeight, req.MaxWeight); err != nil {
		h.logger.WarnContext(r.Context(), "handler: update asset failed",
			slog.String("token", tokenHex),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token.Hex()})
}

// RemoveAsset deactivates an asset and releases its holding to operator
// custody. Operator only.
// DELETE /api/fund/assets/{token}
func (h *AssetHandler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusForbidden, "operator signature required")
		return
	}

	tokenHex := pathParam(r, "token")
	if !common.IsHexAddress(tokenHex) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	token := common.HexToAddress(tokenHex)
	released, err := h.assets.RemoveAsset(r.Context(), caller, token)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: remove asset failed",
			slog.String("token", tokenHex),
			slog.String("error", err.Error()),
		)
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"token":    token.Hex(),
		"released": released.String(),
	})
}
