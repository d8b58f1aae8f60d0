// Package ratelimit throttles the unauthenticated public menu endpoints. The
// POS surface is trusted and never rate limited.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	limiter "github.com/ulule/limiter/v3"

	"github.com/mengleangdeaun/foodie-sub002/internal/common"
)

// Handler enforces a per-client-IP limit before delegating to the next handler.
type Handler struct {
	Limiter *limiter.Limiter
	Key     func(*http.Request) string
	OnError func(error)
}

// NewHandler builds a limit handler with the given rate over the window,
// keyed by client IP.
func NewHandler(store limiter.Store, rate int64, window time.Duration) Handler {
	return Handler{
		Limiter: limiter.New(store, limiter.Rate{Period: window, Limit: rate}),
		Key:     common.ClientIP,
	}
}

// Middleware implements the chi middleware shape. Limiter store failures fail
// open so a Redis hiccup never takes the menu down.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := h.Limiter.Get(r.Context(), h.Key(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			retryAfter := ctx.Reset - time.Now().Unix()
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
