package testutil

import (
	"net/http"

	"beefirst/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context.
// This simulates what the request id middleware would do.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
