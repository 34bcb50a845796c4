// Package version provides middleware that stamps the API version on responses.
package version

import (
	"net/http"

	id "beefirst/pkg/domain"
)

const headerAPIVersion = "X-API-Version"

// ExtractVersion echoes the version of the matched chi subrouter in the
// X-API-Version response header.
//
// Usage:
//
//	r.Route("/v1", func(v1 chi.Router) {
//	    v1.Use(version.ExtractVersion(id.APIVersionV1))
//	    // ... routes
//	})
func ExtractVersion(version id.APIVersion) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(headerAPIVersion, version.String())
			next.ServeHTTP(w, r)
		})
	}
}
