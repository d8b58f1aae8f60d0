package audit

import (
	"net/http"

	"github.com/mengleangdeaun/foodie-sub002/internal/common"
	"github.com/mengleangdeaun/foodie-sub002/internal/tenant"
)

// Handler exposes the owner's configuration change trail.
type Handler struct {
	Store Store
}

// List returns a page of audit entries for the requesting owner.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	ownerID, ok := tenant.OwnerFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner context required", nil)
		return
	}
	limit := common.AtoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := common.AtoiDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.Store.ListEntries(r.Context(), ownerID, int32(limit), int32(offset))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": entries})
}
