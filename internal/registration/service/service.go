package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"beefirst/internal/registration/metrics"
	"beefirst/internal/registration/models"
	dErrors "beefirst/pkg/domain-errors"
	"beefirst/pkg/email"
	"beefirst/pkg/platform/sentinel"
	"beefirst/pkg/requestcontext"
)

// Store is the transactional registration store. Both methods take an already
// normalized email.
type Store interface {
	ClaimEmail(ctx context.Context, email, passwordHash, code string) (bool, error)
	VerifyAndActivate(ctx context.Context, email, code, password string) (models.VerifyResult, error)
}

// Notifier delivers a verification code out of band.
type Notifier interface {
	Send(ctx context.Context, email, code string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type CodeGenerator interface {
	Generate() (string, error)
}

// Service orchestrates registration. It owns email normalization; all state
// decisions live in the Store.
type Service struct {
	store    Store
	notifier Notifier
	hasher   PasswordHasher
	codes    CodeGenerator
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(store Store, notifier Notifier, hasher PasswordHasher, codes CodeGenerator, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		hasher:   hasher,
		codes:    codes,
		logger:   slog.Default(),
		tracer:   otel.Tracer("beefirst/registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeEmail trims surrounding whitespace and lowercases. Every lookup key
// in the store is produced by this function.
func NormalizeEmail(address string) string {
	return email.Normalize(address)
}

// Register claims email for a new registration and sends the verification
// code. The normalized email is returned even when the claim is rejected.
func (s *Service) Register(ctx context.Context, address, password string) (string, error) {
	start := time.Now()
	defer s.observeRegister(start)

	normalized := NormalizeEmail(address)
	ctx, span := s.tracer.Start(ctx, "registration.Register")
	defer span.End()

	if normalized == "" {
		return "", dErrors.New(dErrors.CodeValidation, "email is required")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			return normalized, err
		}
		return normalized, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password"))
	}

	code, err := s.codes.Generate()
	if err != nil {
		return normalized, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate verification code"))
	}

	claimed, err := s.store.ClaimEmail(ctx, normalized, hash, code)
	if err != nil {
		return normalized, s.fail(span, storeError(err, "failed to claim email"))
	}
	if !claimed {
		s.incrementClaim("conflict")
		span.SetAttributes(attribute.String("registration.outcome", "conflict"))
		s.logger.InfoContext(ctx, "registration rejected",
			"email", email.Mask(normalized),
			"request_id", requestcontext.RequestID(ctx),
		)
		return normalized, dErrors.New(dErrors.CodeConflict, "email already claimed")
	}
	s.incrementClaim("claimed")
	span.SetAttributes(attribute.String("registration.outcome", "claimed"))

	// The claim is committed; delivery is fire-and-forget from here on.
	if err := s.notifier.Send(ctx, normalized, code); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementNotificationFailure()
		}
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("registration.notification_failed", true))
		s.logger.WarnContext(ctx, "verification code delivery failed",
			"email", email.Mask(normalized),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}

	s.logger.InfoContext(ctx, "registration claimed",
		"email", email.Mask(normalized),
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
		"device", requestcontext.Device(ctx),
	)
	return normalized, nil
}

// VerifyAndActivate normalizes email and delegates the whole decision to the
// store. Failure results are returned as values, not errors.
func (s *Service) VerifyAndActivate(ctx context.Context, address, code, password string) (models.VerifyResult, error) {
	start := time.Now()
	defer s.observeVerify(start)

	normalized := NormalizeEmail(address)
	ctx, span := s.tracer.Start(ctx, "registration.VerifyAndActivate")
	defer span.End()

	result, err := s.store.VerifyAndActivate(ctx, normalized, code, password)
	if err != nil {
		s.logger.ErrorContext(ctx, "verification failed with store error",
			"email", email.Mask(normalized),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", s.fail(span, storeError(err, "failed to verify registration"))
	}

	span.SetAttributes(attribute.String("registration.result", string(result)))
	if s.metrics != nil {
		s.metrics.IncrementVerification(string(result))
	}

	level := slog.LevelInfo
	if result != models.VerifySuccess {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "verification attempt",
		"email", email.Mask(normalized),
		"result", string(result),
		"request_id", requestcontext.RequestID(ctx),
		"client_ip", requestcontext.ClientIP(ctx),
		"device", requestcontext.Device(ctx),
	)
	return result, nil
}

func storeError(err error, message string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "registration store unavailable")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "registration timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) incrementClaim(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementClaim(outcome)
	}
}

func (s *Service) observeRegister(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveRegister(start)
	}
}

func (s *Service) observeVerify(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveVerify(start)
	}
}
