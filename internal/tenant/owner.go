// Package tenant carries the owner account scope through request contexts.
// The owner is always passed explicitly; no handler or service reads an
// ambient authenticated-user singleton.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

// WithOwner stores the owner identifier on the context.
func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, ownerID)
}

// OwnerFrom extracts the owner identifier from the context if present.
func OwnerFrom(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(contextKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
