package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mengleangdeaun/foodie-sub002/internal/catalog"
	"github.com/mengleangdeaun/foodie-sub002/internal/common"
	"github.com/mengleangdeaun/foodie-sub002/internal/tenant"
)

// Handler exposes order placement, reads, and status transitions.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type lineRequest struct {
	ProductID   string   `json:"productId" validate:"required,uuid4"`
	SizeID      *string  `json:"sizeId" validate:"omitempty,uuid4"`
	Quantity    int      `json:"quantity" validate:"required,gt=0"`
	ModifierIDs []string `json:"modifierIds" validate:"dive,uuid4"`
	Note        string   `json:"note" validate:"max=500"`
}

type createRequest struct {
	OrderType               string        `json:"orderType" validate:"required,oneof=walk_in delivery"`
	TableID                 *string       `json:"tableId" validate:"omitempty,uuid4"`
	DeliveryPartnerID       *string       `json:"deliveryPartnerId" validate:"omitempty,uuid4"`
	Lines                   []lineRequest `json:"lines" validate:"required,min=1,dive"`
	OrderDiscountAmount     float64       `json:"orderDiscountAmount" validate:"gte=0"`
	OrderDiscountPercent    float64       `json:"orderDiscountPercentage" validate:"gte=0,lte=100"`
	DeliveryPartnerDiscount float64       `json:"deliveryPartnerDiscount" validate:"gte=0"`
}

// Create places an order. Wire this route behind the idempotency middleware so
// retried submissions replay the stored response instead of double-charging.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
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
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
	}
	in, fieldErrs := payload.toInput()
	if len(fieldErrs) > 0 {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid identifiers", fieldErrs)
		return
	}
	o, err := h.Svc.Create(r.Context(), ownerID, branchID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": orderResponse(o)})
}

// List pages through the branch's orders, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
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
	page, perPage := common.ParsePagination(r, 20)
	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := Status(raw)
		status = &st
	}
	orders, total, err := h.Svc.List(r.Context(), ownerID, branchID, status, page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for i := range orders {
		out = append(out, orderResponse(&orders[i]))
	}
	w.Header().Set("X-Total-Count", common.FormatInt64(total))
	common.JSON(w, http.StatusOK, map[string]any{"data": out, "meta": map[string]any{
		"page":    page,
		"perPage": perPage,
		"total":   total,
	}})
}

// Get returns one order with its items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
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
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	o, err := h.Svc.Get(r.Context(), ownerID, branchID, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": orderResponse(&o)})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus advances the order through its lifecycle.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var payload statusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
	}
	o, err := h.Svc.Transition(r.Context(), ownerID, branchID, orderID, Status(payload.Status))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"id":     o.ID.String(),
		"status": string(o.Status),
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	var uerr *UnavailableError
	var perr *PersistenceError
	switch {
	case errors.As(err, &verr):
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", "invalid order input", verr.Fields)
	case errors.As(err, &uerr):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRODUCT_UNAVAILABLE", uerr.Error(), nil)
	case errors.Is(err, ErrInvalidTransition):
		common.JSONError(w, http.StatusBadRequest, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalog.ErrBranchNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.As(err, &perr):
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order could not be saved", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order operation failed", nil)
	}
}

func (r createRequest) toInput() (CreateInput, map[string]string) {
	fields := map[string]string{}
	in := CreateInput{
		OrderType:               Type(r.OrderType),
		OrderDiscountAmount:     r.OrderDiscountAmount,
		OrderDiscountPercent:    r.OrderDiscountPercent,
		DeliveryPartnerDiscount: r.DeliveryPartnerDiscount,
	}
	in.TableID = parseOptionalUUID(r.TableID, "table_id", fields)
	in.DeliveryPartnerID = parseOptionalUUID(r.DeliveryPartnerID, "delivery_partner_id", fields)
	in.Lines = make([]LineInput, 0, len(r.Lines))
	for i, line := range r.Lines {
		li := LineInput{Quantity: line.Quantity, Note: line.Note}
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			fields[lineField(i, "product_id")] = "must be a uuid"
		}
		li.ProductID = pid
		li.SizeID = parseOptionalUUID(line.SizeID, lineField(i, "size_id"), fields)
		for _, raw := range line.ModifierIDs {
			mid, err := uuid.Parse(raw)
			if err != nil {
				fields[lineField(i, "modifier_ids")] = "must be uuids"
				continue
			}
			li.ModifierIDs = append(li.ModifierIDs, mid)
		}
		in.Lines = append(in.Lines, li)
	}
	return in, fields
}

func parseOptionalUUID(raw *string, field string, fields map[string]string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		fields[field] = "must be a uuid"
		return nil
	}
	return &id
}

func orderResponse(o *Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for i := range o.Items {
		items = append(items, itemResponse(&o.Items[i]))
	}
	resp := map[string]any{
		"id":                      o.ID.String(),
		"branchId":                o.BranchID.String(),
		"orderType":               string(o.OrderType),
		"status":                  string(o.Status),
		"subtotal":                FormatAmount(o.Subtotal),
		"itemDiscountTotal":       FormatAmount(o.ItemDiscountTotal),
		"orderLevelDiscount":      FormatAmount(o.OrderLevelDiscount),
		"deliveryPartnerDiscount": FormatAmount(o.DeliveryPartnerDiscount),
		"orderDiscountAmount":     FormatAmount(o.OrderDiscountAmount),
		"taxRate":                 o.TaxRate,
		"taxAmount":               FormatAmount(o.TaxAmount),
		"total":                   FormatAmount(o.Total),
		"items":                   items,
		"createdAt":               o.CreatedAt,
	}
	if o.TableID != nil {
		resp["tableId"] = o.TableID.String()
	}
	if o.DeliveryPartnerID != nil {
		resp["deliveryPartnerId"] = o.DeliveryPartnerID.String()
	}
	return resp
}

func itemResponse(it *Item) map[string]any {
	resp := map[string]any{
		"id":                   it.ID.String(),
		"productId":            it.ProductID.String(),
		"basePrice":            FormatAmount(it.BasePrice),
		"originalProductPrice": FormatAmount(it.OriginalProductPrice),
		"modifierTotalPrice":   FormatAmount(it.ModifierTotalPrice),
		"itemDiscountAmount":   FormatAmount(it.ItemDiscountAmount),
		"appliedDiscountPct":   it.AppliedDiscountPct,
		"appliedDiscountType":  it.AppliedDiscountType,
		"finalUnitPrice":       FormatAmount(it.FinalUnitPrice),
		"quantity":             it.Quantity,
		"selectedModifiers":    it.SelectedModifiers,
		"remark":               it.Remark,
	}
	if it.SizeID != nil {
		resp["sizeId"] = it.SizeID.String()
	}
	if it.SizeName != nil {
		resp["sizeName"] = *it.SizeName
	}
	return resp
}
