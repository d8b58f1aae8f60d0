package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mengleangdeaun/foodie-sub002/internal/audit"
	"github.com/mengleangdeaun/foodie-sub002/internal/common"
	"github.com/mengleangdeaun/foodie-sub002/internal/tenant"
)

// Handler exposes menu projections and branch override management.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	Audit    audit.Service
	Logger   zerolog.Logger
}

// Menu serves the owner-facing POS menu, every entry priced.
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	h.menu(w, r, false)
}

// PublicMenu serves the customer-facing QR menu, unavailable entries omitted.
// The owner scope comes from the branch itself, not the request.
func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	items, err := h.Svc.PublicMenu(r.Context(), branchID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

func (h *Handler) menu(w http.ResponseWriter, r *http.Request, publicOnly bool) {
	ownerID, ok := tenant.OwnerFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner context required", nil)
		return
	}
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	items, err := h.Svc.Menu(r.Context(), ownerID, branchID, publicOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

type branchOverrideRequest struct {
	BranchPrice        *float64 `json:"branchPrice" validate:"omitempty,gte=0"`
	DiscountPercent    float64  `json:"discountPercent" validate:"gte=0,lte=100"`
	DiscountActive     bool     `json:"discountActive"`
	Available          bool     `json:"available"`
	Popular            bool     `json:"popular"`
	Signature          bool     `json:"signature"`
	ChefRecommendation bool     `json:"chefRecommendation"`
}

// UpdateBranchProduct upserts the branch-level price/discount override.
func (h *Handler) UpdateBranchProduct(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := tenant.OwnerFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner context required", nil)
		return
	}
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var payload branchOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}
	bp, err := h.Svc.UpdateBranchOverride(r.Context(), ownerID, branchID, productID, BranchProductUpdate{
		BranchPrice:        payload.BranchPrice,
		DiscountPercent:    payload.DiscountPercent,
		DiscountActive:     payload.DiscountActive,
		Available:          payload.Available,
		Popular:            payload.Popular,
		Signature:          payload.Signature,
		ChefRecommendation: payload.ChefRecommendation,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.record(r, ownerID, "catalog.branch_product.update", "branch_product", bp.ID.String())
	common.JSON(w, http.StatusOK, map[string]any{"data": branchProductResponse(bp)})
}

type sizeOverrideRequest struct {
	BranchSizePrice *float64 `json:"branchSizePrice" validate:"omitempty,gte=0"`
	DiscountPercent float64  `json:"discountPercent" validate:"gte=0,lte=100"`
	DiscountActive  bool     `json:"discountActive"`
	Available       bool     `json:"available"`
}

// UpdateBranchProductSize upserts the size-level override.
func (h *Handler) UpdateBranchProductSize(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := tenant.OwnerFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner context required", nil)
		return
	}
	branchID, err := uuid.Parse(chi.URLParam(r, "branchID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid branch id", nil)
		return
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	sizeID, err := uuid.Parse(chi.URLParam(r, "sizeID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid size id", nil)
		return
	}
	var payload sizeOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
		return
	}
	row, err := h.Svc.UpdateBranchSizeOverride(r.Context(), ownerID, branchID, productID, sizeID, BranchSizeUpdate{
		BranchSizePrice: payload.BranchSizePrice,
		DiscountPercent: payload.DiscountPercent,
		DiscountActive:  payload.DiscountActive,
		Available:       payload.Available,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.record(r, ownerID, "catalog.branch_product_size.update", "branch_product_size", row.ID.String())
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":              row.ID.String(),
		"sizeId":          row.SizeID.String(),
		"branchSizePrice": row.BranchSizePrice,
		"discountPercent": row.DiscountPercent,
		"discountActive":  row.DiscountActive,
		"available":       row.Available,
	}})
}

func (h *Handler) record(r *http.Request, ownerID uuid.UUID, action, resourceType, resourceID string) {
	if err := h.Audit.Record(r.Context(), ownerID, action, resourceType, resourceID, r, nil); err != nil {
		h.Logger.Error().Err(err).Str("action", action).Msg("record audit entry")
	}
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBranchNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "branch not found", nil)
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, ErrSizeNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "size does not belong to product", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog operation failed", nil)
	}
}

func branchProductResponse(bp BranchProduct) map[string]any {
	return map[string]any{
		"id":                 bp.ID.String(),
		"branchId":           bp.BranchID.String(),
		"productId":          bp.ProductID.String(),
		"branchPrice":        bp.BranchPrice,
		"discountPercent":    bp.DiscountPercent,
		"discountActive":     bp.DiscountActive,
		"available":          bp.Available,
		"popular":            bp.Popular,
		"signature":          bp.Signature,
		"chefRecommendation": bp.ChefRecommendation,
	}
}
