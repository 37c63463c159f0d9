package pricing

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/frostmart/backend-pricing/internal/common"
)

// Handler exposes the cart pricing endpoints.
type Handler struct {
	Engine          *Engine
	CeilingPercent  float64
	ValidateResults bool
}

type calculateRequest struct {
	Items        []CartItem `json:"items"`
	CustomerType string     `json:"customerType"`
	UserID       string     `json:"userId"`
}

type availableRequest struct {
	ProductIDs []string `json:"productIds"`
	Quantity   int      `json:"quantity"`
}

// Calculate prices a cart and returns the discount result.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing engine not configured", nil)
		return
	}
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return
	}
	res, err := h.Engine.CalculateCartDiscounts(r.Context(), req.Items, Options{
		CustomerType: strings.TrimSpace(req.CustomerType),
		UserID:       strings.TrimSpace(req.UserID),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if h.ValidateResults {
		if err := ValidateResult(res, h.ceiling()); err != nil {
			common.JSONError(w, http.StatusInternalServerError, common.CodeDataInconsistent, err.Error(), nil)
			return
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

// Available reports the discounts each product would attract at a probe
// quantity, for storefront badges.
func (h *Handler) Available(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing engine not configured", nil)
		return
	}
	var req availableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}
	if len(req.ProductIDs) == 0 {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "productIds is required", nil)
		return
	}
	previews, err := h.Engine.AvailableDiscounts(r.Context(), req.ProductIDs, req.Quantity)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": previews})
}

func (h *Handler) ceiling() float64 {
	if h.CeilingPercent > 0 {
		return h.CeilingPercent
	}
	return DefaultDiscountCeiling
}

func writeEngineError(w http.ResponseWriter, err error) {
	if appErr, ok := common.AsAppError(err); ok {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		common.JSONError(w, status, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
}
