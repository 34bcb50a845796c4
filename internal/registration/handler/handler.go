package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"beefirst/internal/platform/metrics"
	"beefirst/internal/platform/middleware"
	"beefirst/internal/registration/models"
	registration "beefirst/internal/registration/service"
	id "beefirst/pkg/domain"
	dErrors "beefirst/pkg/domain-errors"
	emailaddr "beefirst/pkg/email"
	"beefirst/pkg/platform/httputil"
	"beefirst/pkg/platform/middleware/version"
	"beefirst/pkg/requestcontext"
)

// unauthorizedBody is the single response for every failed activation,
// whatever the reason.
const unauthorizedBody = `{"error":"unauthorized","error_description":"Invalid credentials or code"}` + "\n"

// Service defines the interface for registration operations.
type Service interface {
	Register(ctx context.Context, email, password string) (string, error)
	VerifyAndActivate(ctx context.Context, email, code, password string) (models.VerifyResult, error)
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
	ttl     time.Duration
}

// New constructs a registration handler. ttl is reported to clients as the
// verification code lifetime.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, ttl time.Duration) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		metrics: metrics,
		ttl:     ttl,
	}
}

// Register mounts the v1 registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(version.ExtractVersion(id.APIVersionV1))
		v1.Use(middleware.ContentTypeJSON)
		v1.Use(middleware.LatencyMiddleware(h.metrics))
		v1.Post("/register", h.HandleRegister)
		v1.With(middleware.RequireBasicAuth(unauthorizedBody, h.logger)).
			Post("/activate", h.HandleActivate)
	})
}

// HandleRegister handles POST /v1/register requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	email, err := h.service.Register(ctx, req.Email, req.Password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			// Do not reveal whether the address is pending or already active.
			httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "Registration failed"))
			return
		}
		h.logger.ErrorContext(ctx, "registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration accepted",
		"request_id", requestID,
		"email", emailaddr.Mask(email),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		Message:          "Verification code sent",
		Email:            email,
		ExpiresInSeconds: int(h.ttl / time.Second),
	})
}

// HandleActivate handles POST /v1/activate requests. Every non-success
// verification result produces the same 401 response.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	creds, ok := middleware.GetBasicCredentials(ctx)
	if !ok {
		writeUnauthorized(w)
		return
	}

	req, ok := httputil.DecodeAndPrepare[ActivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.VerifyAndActivate(ctx, creds.Username, req.Code, creds.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "activation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if result != models.VerifySuccess {
		writeUnauthorized(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ActivateResponse{
		Message: "Account activated",
		Email:   registration.NormalizeEmail(creds.Username),
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Basic realm="beefirst"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody))
}
