package inventory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/frostmart/backend-pricing/internal/common"
)

// Handler exposes the expiry dashboard and batch intake endpoints.
type Handler struct {
	Svc *Service
}

// Dashboard returns at-risk stock grouped by urgency.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "inventory service not configured", nil)
		return
	}
	dash, err := h.Svc.ExpiryDashboard(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": dash})
}

// AddBatch records a received lot for the product in the URL.
func (h *Handler) AddBatch(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "inventory service not configured", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid product id", nil)
		return
	}
	var in BatchInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, "invalid payload", nil)
		return
	}
	batch, err := h.Svc.AddBatch(r.Context(), productID, in)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidInput, err.Error(), nil)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": batch})
}
