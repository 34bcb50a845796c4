package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beefirst/internal/platform/metrics"
	"beefirst/pkg/requestcontext"
	"beefirst/pkg/testutil"
)

const rejectBody = `{"error":"unauthorized"}` + "\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireBasicAuth(t *testing.T) {
	var got BasicCredentials
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, ok := GetBasicCredentials(r.Context())
		require.True(t, ok)
		got = creds
		w.WriteHeader(http.StatusNoContent)
	})
	h := RequireBasicAuth(rejectBody, discardLogger())(next)

	t.Run("decoded credentials reach the handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/activate", nil)
		req.SetBasicAuth("a@x.com", "pass:with:colons")
		rr := testutil.DoRequest(h, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, BasicCredentials{Username: "a@x.com", Password: "pass:with:colons"}, got)
	})

	rejected := map[string]string{
		"missing header": "",
		"bearer scheme":  "Bearer abc",
		"bad base64":     "Basic !!!",
		"blank username": "Basic OnNlY3JldA==",
	}
	for name, header := range rejected {
		t.Run(name, func(t *testing.T) {
			req := testutil.WithRequestID(httptest.NewRequest(http.MethodPost, "/activate", nil), "req-1")
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := testutil.DoRequest(h, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, rejectBody, rr.Body.String())
			assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Basic")
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("inbound id is propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rr := testutil.DoRequest(h, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))
	})

	t.Run("missing or oversized id is replaced", func(t *testing.T) {
		for _, inbound := range []string{"", strings.Repeat("x", 200)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Request-ID", inbound)
			rr := testutil.DoRequest(h, req)

			assert.Len(t, seen, 36)
			assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
		}
	})
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := testutil.WithRequestID(httptest.NewRequest(http.MethodGet, "/", nil), "req-7")
	rr := testutil.DoRequest(h, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, buf.String(), `"request_id":"req-7"`)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{"json", "application/json", `{}`, http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"form", "application/x-www-form-urlencoded", `a=b`, http.StatusUnsupportedMediaType},
		{"empty body", "", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/", tt.body)
			req.Header.Set("Content-Type", tt.contentType)
			rr := testutil.DoRequest(h, req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestLatencyMiddlewareUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/items/43", nil))

	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.RequestsTotal.WithLabelValues("/items/{id}", "GET", "202")))
}

func TestLoggerIncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-9", requestcontext.RequestID(r.Context()))
		w.WriteHeader(http.StatusTeapot)
	}))

	testutil.DoRequest(h, testutil.WithRequestID(httptest.NewRequest(http.MethodGet, "/x", nil), "req-9"))

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"request_id":"req-9"`)
}
