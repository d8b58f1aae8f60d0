// Package audit records who changed branch pricing configuration and when.
// Price overrides move money; the trail answers disputes.
package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mengleangdeaun/foodie-sub002/internal/common"
	"github.com/mengleangdeaun/foodie-sub002/internal/obs"
)

// Entry is one recorded configuration change.
type Entry struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"ownerId"`
	Action       string     `json:"action"`
	ResourceType string     `json:"resourceType"`
	ResourceID   string     `json:"resourceId"`
	Method       string     `json:"method"`
	Route        string     `json:"route"`
	IP           *string    `json:"ip,omitempty"`
	RequestID    *string    `json:"requestId,omitempty"`
	Metadata     []byte     `json:"metadata,omitempty"`
	OccurredAt   time.Time  `json:"occurredAt"`
}

// Store defines the persistence operations required for auditing.
type Store interface {
	InsertEntry(ctx context.Context, e Entry) error
	ListEntries(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]Entry, error)
}

// Service persists the audit trail for pricing configuration changes.
type Service struct {
	Store   Store
	Enabled bool
}

// Record persists one entry when auditing is enabled. Recording failures are
// returned to the caller to log; they never fail the underlying change.
func (s Service) Record(ctx context.Context, ownerID uuid.UUID, action, resourceType, resourceID string, req *http.Request, metadata []byte) error {
	if !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	if req == nil {
		return errors.New("audit: request is required")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	entry := Entry{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Action:       buildAction(action, req.Method, route),
		ResourceType: strings.TrimSpace(resourceType),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Route:        route,
		IP:           pointerOf(common.ClientIP(req)),
		RequestID:    pointerOf(req.Header.Get("X-Request-ID")),
		Metadata:     metadata,
	}
	return s.Store.InsertEntry(ctx, entry)
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	target := route
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + target
}

func pointerOf(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
