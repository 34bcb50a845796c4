package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beefirst/internal/platform/config"
	"beefirst/internal/platform/metrics"
	"beefirst/internal/registration/credentials"
	"beefirst/internal/registration/models"
	"beefirst/internal/registration/service"
	"beefirst/internal/registration/store"
	"beefirst/pkg/testutil"
)

// outbox records the last code sent to each address.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) Send(_ context.Context, email, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[email] = code
	return nil
}

func (o *outbox) code(email string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.codes[email]
}

func wrongCode(code string) string {
	if code == "0000" {
		return "0001"
	}
	return "0000"
}

func TestRouter(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	hasher, err := credentials.NewHasher(credentials.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	box := &outbox{codes: map[string]string{}}
	svc := service.New(store.NewInMemory(hasher, models.DefaultPolicy()), box, hasher, credentials.NewCodeGenerator(),
		service.WithLogger(log))
	health := checkHealth(func(context.Context) error { return nil }, nil, log)
	router := newRouter(cfg, svc, health, metrics.New(prometheus.NewRegistry()), log)

	activate := func(code, email, password string) *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/activate", map[string]string{"code": code})
		req.SetBasicAuth(email, password)
		return req
	}

	testutil.Given(t, "the assembled router", func(t *testing.T) {
		testutil.When(t, "calling GET /health", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/health"))

			testutil.Then(t, "it should report ok", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				testutil.AssertJSONContains(t, rr, "status", "ok")
			})
		})

		testutil.When(t, "registering and activating with the delivered code", func(t *testing.T) {
			reg := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/register",
				map[string]string{"email": "Ada@Example.com", "password": "correct horse"}))
			act := testutil.DoRequest(router, activate(box.code("ada@example.com"), "ada@example.com", "correct horse"))

			testutil.Then(t, "both calls should succeed", func(t *testing.T) {
				testutil.AssertStatus(t, reg, http.StatusCreated)
				assert.NotEmpty(t, reg.Header().Get("X-Request-ID"))
				assert.Equal(t, "v1", reg.Header().Get("X-API-Version"))
				testutil.AssertStatusOK(t, act)
				testutil.AssertJSONContains(t, act, "email", "ada@example.com")
			})
		})

		testutil.When(t, "failing three times before using the right code", func(t *testing.T) {
			testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/register",
				map[string]string{"email": "a@x.com", "password": "secret123"}))
			code := box.code("a@x.com")

			var bodies []string
			for range 3 {
				rr := testutil.DoRequest(router, activate(wrongCode(code), "a@x.com", "secret123"))
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
				bodies = append(bodies, rr.Body.String())
			}
			final := testutil.DoRequest(router, activate(code, "a@x.com", "secret123"))
			again := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/register",
				map[string]string{"email": "a@x.com", "password": "newpass99"}))

			testutil.Then(t, "the account should stay locked until it is claimed again", func(t *testing.T) {
				testutil.AssertStatus(t, final, http.StatusUnauthorized)
				assert.Equal(t, bodies[0], final.Body.String())
				for _, b := range bodies {
					assert.Equal(t, bodies[0], b)
				}
				testutil.AssertStatus(t, again, http.StatusCreated)
			})
		})

		testutil.When(t, "calling GET /metrics", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))

			testutil.Then(t, "it should expose request metrics by route", func(t *testing.T) {
				testutil.AssertStatusOK(t, rr)
				body := string(testutil.ReadBody(t, rr))
				assert.True(t, strings.Contains(body, `route="/v1/register"`), "metrics body:\n%s", body)
			})
		})
	})
}
