package tenant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequireOwnerInjectsContext(t *testing.T) {
	resolver := NewResolver("")
	ownerID := uuid.New()

	var got uuid.UUID
	var ok bool
	handler := resolver.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = OwnerFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Owner-ID", ownerID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, ok)
	require.Equal(t, ownerID, got)
}

func TestRequireOwnerRejectsMissingAndMalformed(t *testing.T) {
	resolver := NewResolver("X-Owner-ID")
	handler := resolver.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "UNAUTHORIZED")

	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Owner-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireOwnerCustomHeader(t *testing.T) {
	resolver := NewResolver("X-Account-ID")
	ownerID := uuid.New()
	handler := resolver.RequireOwner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("X-Account-ID", ownerID.String())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOwnerFromEmptyContext(t *testing.T) {
	_, ok := OwnerFrom(context.Background())
	require.False(t, ok)

	ctx := WithOwner(context.Background(), uuid.Nil)
	_, ok = OwnerFrom(ctx)
	require.False(t, ok)
}
