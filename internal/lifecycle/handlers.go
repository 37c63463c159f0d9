package lifecycle

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/frostmart/backend-pricing/internal/common"
	"github.com/frostmart/backend-pricing/internal/promo"
)

// Handler exposes manual triggers for the scheduled maintenance jobs. These
// mirror the worker tasks so operators can run them on demand.
type Handler struct {
	Manager *Manager
}

// GeneratePromotions runs one expiry-promotion generation pass.
func (h *Handler) GeneratePromotions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "lifecycle manager not configured", nil)
		return
	}
	created, err := h.Manager.GenerateExpiryPromotions(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	if created == nil {
		created = []GeneratedPromotion{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"created": created,
			"count":   len(created),
		},
	})
}

type promotionPayload struct {
	Name          string             `json:"name"`
	Type          string             `json:"type"`
	DiscountType  promo.DiscountType `json:"discountType"`
	DiscountValue float64            `json:"discountValue"`
	ProductIDs    []uuid.UUID        `json:"productIds"`
	Categories    []string           `json:"categories"`
	CustomerTypes []string           `json:"customerTypes"`
	BulkRules     []promo.BulkTier   `json:"bulkRules"`
	ExpiryRules   []promo.ExpiryTier `json:"expiryRules"`
	MinQuantity   int                `json:"minQuantity"`
	StartsAt      time.Time          `json:"startsAt"`
	EndsAt        time.Time          `json:"endsAt"`
	UsageLimit    *int               `json:"usageLimit"`
}

// CreatePromotion stores an operator-defined promotion after the stateless
// consistency checks pass.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "lifecycle manager not configured", nil)
		return
	}
	var in promotionPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return
	}
	p := promo.Promotion{
		Name:          in.Name,
		Type:          in.Type,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		Applies:       promo.ResolveApplicability(in.ProductIDs, in.Categories),
		CustomerTypes: in.CustomerTypes,
		BulkRules:     in.BulkRules,
		ExpiryRules:   in.ExpiryRules,
		MinQuantity:   in.MinQuantity,
		StartsAt:      in.StartsAt,
		EndsAt:        in.EndsAt,
		Active:        true,
		UsageLimit:    in.UsageLimit,
	}
	created, err := h.Manager.CreatePromotion(r.Context(), p)
	if err != nil {
		switch {
		case errors.Is(err, promo.ErrDuplicatePromotion):
			common.JSONError(w, http.StatusConflict, common.CodeInvalidInput, err.Error(), nil)
		case errors.Is(err, ErrInvalidPromotion):
			common.JSONError(w, http.StatusUnprocessableEntity, common.CodeInvalidInput, err.Error(), nil)
		default:
			common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		}
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// CleanupPromotions deactivates promotions past their end date.
func (h *Handler) CleanupPromotions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "lifecycle manager not configured", nil)
		return
	}
	res, err := h.Manager.CleanupExpiredPromotions(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// CleanupBatches removes expired batches and adjusts stock.
func (h *Handler) CleanupBatches(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "lifecycle manager not configured", nil)
		return
	}
	res, err := h.Manager.CleanupExpiredBatches(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// SetupDefaults creates the storewide automatic bulk/expiry promotions.
func (h *Handler) SetupDefaults(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Manager == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "lifecycle manager not configured", nil)
		return
	}
	var in SetupInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return
	}
	if !in.CreateBulkDiscount && !in.CreateExpiryDiscount {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "nothing to create", nil)
		return
	}
	created, err := h.Manager.SetupAutomaticDiscounts(r.Context(), in)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"created": len(created),
		},
	})
}
