package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct{ err error }

func (s stubChecker) Health(context.Context) error { return s.err }

func TestHealth(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		database func(context.Context) error
		cache    healthChecker
		status   int
		body     map[string]string
	}{
		{"database only", ok, nil, http.StatusOK, map[string]string{"status": "ok", "database": "ok"}},
		{"database and redis", ok, stubChecker{}, http.StatusOK,
			map[string]string{"status": "ok", "database": "ok", "redis": "ok"}},
		{"database down", down, nil, http.StatusServiceUnavailable,
			map[string]string{"status": "unavailable", "database": "unavailable"}},
		{"redis down", ok, stubChecker{err: errors.New("timeout")}, http.StatusServiceUnavailable,
			map[string]string{"status": "unavailable", "database": "ok", "redis": "unavailable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			checkHealth(tt.database, tt.cache, log).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.body, body)
		})
	}
}
