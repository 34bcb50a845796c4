// Package requesttime captures one "now" per HTTP request so logs and queued
// verification messages agree. Registration TTL arithmetic never reads it.
package requesttime

import (
	"net/http"
	"time"

	"beefirst/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
