package tenant

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mengleangdeaun/foodie-sub002/internal/common"
)

// Resolver extracts the owner account from the header set by the upstream
// auth gateway and injects it into the request context.
type Resolver struct {
	HeaderName string
}

// NewResolver returns a resolver for the given header name, defaulting to X-Owner-ID.
func NewResolver(headerName string) *Resolver {
	if strings.TrimSpace(headerName) == "" {
		headerName = "X-Owner-ID"
	}
	return &Resolver{HeaderName: headerName}
}

// RequireOwner rejects requests without a valid owner identifier.
func (r *Resolver) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		raw := strings.TrimSpace(req.Header.Get(r.HeaderName))
		if raw == "" {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "owner context required", nil)
			return
		}
		ownerID, err := uuid.Parse(raw)
		if err != nil {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid owner identifier", nil)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithOwner(req.Context(), ownerID)))
	})
}
