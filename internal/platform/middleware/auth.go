package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"beefirst/pkg/requestcontext"
)

// BasicCredentials are the decoded HTTP Basic credentials of a request.
type BasicCredentials struct {
	Username string
	Password string
}

type contextKeyBasicCredentials struct{}

// GetBasicCredentials retrieves the credentials stored by RequireBasicAuth.
func GetBasicCredentials(ctx context.Context) (BasicCredentials, bool) {
	creds, ok := ctx.Value(contextKeyBasicCredentials{}).(BasicCredentials)
	return creds, ok
}

// WithBasicCredentials injects credentials into a context.
// Useful for handler unit tests that don't run the full middleware chain.
func WithBasicCredentials(ctx context.Context, creds BasicCredentials) context.Context {
	return context.WithValue(ctx, contextKeyBasicCredentials{}, creds)
}

// RequireBasicAuth decodes the Authorization header and rejects requests with
// missing or malformed Basic credentials. The rejection body is the same one
// the activation endpoint uses for every failed attempt.
func RequireBasicAuth(unauthorizedBody string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok || strings.TrimSpace(username) == "" {
				ctx := r.Context()
				requestID := requestcontext.RequestID(ctx)
				logger.WarnContext(ctx, "unauthorized access - missing basic credentials",
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Basic realm="beefirst"`)
				w.WriteHeader(http.StatusUnauthorized)
				if _, err := w.Write([]byte(unauthorizedBody)); err != nil {
					logger.ErrorContext(ctx, "failed to write unauthorized response",
						"error", err,
						"request_id", requestID,
					)
				}
				return
			}

			ctx := WithBasicCredentials(r.Context(), BasicCredentials{Username: username, Password: password})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
