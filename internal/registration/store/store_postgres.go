package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"beefirst/internal/platform/postgres"
	"beefirst/internal/registration/models"
	"beefirst/pkg/platform/sentinel"
	"beefirst/pkg/platform/tx"
)

// PostgresStore persists registrations in PostgreSQL. Claims are a single
// conditional upsert; verification runs in one transaction holding the row lock.
// All timestamps come from the database clock.
type PostgresStore struct {
	db          *sql.DB
	verifier    PasswordVerifier
	policy      models.Policy
	lockTimeout time.Duration
}

type PostgresOption func(*PostgresStore)

// WithLockTimeout bounds how long a verification waits for the row lock.
func WithLockTimeout(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		s.lockTimeout = d
	}
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB, verifier PasswordVerifier, policy models.Policy, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db, verifier: verifier, policy: policy}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClaimEmail inserts a fresh claim or reinitializes an expired or locked row.
// Rows in CLAIMED or ACTIVE state are left untouched and false is returned.
func (s *PostgresStore) ClaimEmail(ctx context.Context, email, passwordHash, code string) (bool, error) {
	query := `
		INSERT INTO registrations (email, password_hash, verification_code, state, attempt_count, created_at, activated_at)
		VALUES ($1, $2, $3, 'CLAIMED', 0, NOW(), NULL)
		ON CONFLICT (email) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			verification_code = EXCLUDED.verification_code,
			state = 'CLAIMED',
			attempt_count = 0,
			created_at = NOW(),
			activated_at = NULL
		WHERE registrations.state IN ('EXPIRED', 'LOCKED')
		RETURNING email
	`
	var claimed string
	err := s.querier(ctx).QueryRowContext(ctx, query, email, passwordHash, code).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim email: %w", postgres.Classify(err))
	}
	return true, nil
}

// VerifyAndActivate checks code and password for email and applies the
// resulting transition while holding the row lock.
func (s *PostgresStore) VerifyAndActivate(ctx context.Context, email, code, password string) (models.VerifyResult, error) {
	var result models.VerifyResult
	err := tx.Run(ctx, s.db, nil, func(ctx context.Context, t *sql.Tx) error {
		if s.lockTimeout > 0 {
			// SET LOCAL does not accept bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := t.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}

		rec, now, err := s.lockRow(ctx, t, email)
		if err != nil {
			return err
		}

		codeMatches, passwordMatches := checkCredentials(s.verifier, rec, code, password)
		outcome := models.Evaluate(rec, codeMatches, passwordMatches, now, s.policy)
		result = outcome.Result
		if outcome.Effect == models.EffectNone {
			return nil
		}

		if err := rec.Apply(outcome, now); err != nil {
			return fmt.Errorf("apply %s: %w: %w", outcome.Effect, sentinel.ErrInvalidState, err)
		}
		return s.writeTransition(ctx, t, rec)
	})
	if err != nil {
		return "", fmt.Errorf("verify and activate: %w", postgres.Classify(err))
	}
	return result, nil
}

// lockRow reads the row with FOR UPDATE, then the database clock. The clock is
// read after the lock is held so time spent waiting on a concurrent verifier
// counts against the TTL. Every path runs the same two statements. A missing
// row yields a nil registration.
func (s *PostgresStore) lockRow(ctx context.Context, t *sql.Tx, email string) (*models.Registration, time.Time, error) {
	query := `
		SELECT email, password_hash, verification_code, state, attempt_count, created_at, activated_at
		FROM registrations
		WHERE email = $1
		FOR UPDATE
	`
	rec, err := scanRegistration(t.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		rec, err = nil, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("lock registration: %w", err)
	}

	// NOW() is fixed at transaction start, before the lock wait.
	var now time.Time
	if err := t.QueryRowContext(ctx, `SELECT clock_timestamp()`).Scan(&now); err != nil {
		return nil, time.Time{}, fmt.Errorf("read clock: %w", err)
	}
	return rec, now, nil
}

// writeTransition persists the mutated row. The state guard keeps the write
// forward-only even if the row changed outside this transaction.
func (s *PostgresStore) writeTransition(ctx context.Context, t *sql.Tx, rec *models.Registration) error {
	query := `
		UPDATE registrations
		SET password_hash = $2,
			state = $3,
			attempt_count = $4,
			activated_at = $5
		WHERE email = $1
		  AND state = 'CLAIMED'
	`
	var activatedAt sql.NullTime
	if rec.ActivatedAt != nil {
		activatedAt = sql.NullTime{Time: *rec.ActivatedAt, Valid: true}
	}
	var passwordHash sql.NullString
	if rec.PasswordHash != nil {
		passwordHash = sql.NullString{String: *rec.PasswordHash, Valid: true}
	}

	res, err := t.ExecContext(ctx, query, rec.Email, passwordHash, string(rec.State), rec.AttemptCount, activatedAt)
	if err != nil {
		return fmt.Errorf("write transition: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write transition rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("write transition for %s: %w", rec.State, sentinel.ErrInvalidState)
	}
	return nil
}

// Get returns the stored registration for email.
func (s *PostgresStore) Get(ctx context.Context, email string) (*models.Registration, error) {
	query := `
		SELECT email, password_hash, verification_code, state, attempt_count, created_at, activated_at
		FROM registrations
		WHERE email = $1
	`
	rec, err := scanRegistration(s.querier(ctx).QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration: %w", postgres.Classify(err))
	}
	return rec, nil
}

// ExpireStale moves CLAIMED rows older than the TTL to EXPIRED and purges their
// password hashes. It returns the number of rows expired.
func (s *PostgresStore) ExpireStale(ctx context.Context) (int64, error) {
	query := `
		UPDATE registrations
		SET state = 'EXPIRED',
			password_hash = NULL
		WHERE state = 'CLAIMED'
		  AND created_at < NOW() - make_interval(secs => $1)
	`
	res, err := s.querier(ctx).ExecContext(ctx, query, s.policy.TTL.Seconds())
	if err != nil {
		return 0, fmt.Errorf("expire stale registrations: %w", postgres.Classify(err))
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire stale rows affected: %w", err)
	}
	return rows, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Registration, error) {
	var (
		rec          models.Registration
		passwordHash sql.NullString
		state        string
		activatedAt  sql.NullTime
	)
	if err := row.Scan(&rec.Email, &passwordHash, &rec.VerificationCode, &state, &rec.AttemptCount, &rec.CreatedAt, &activatedAt); err != nil {
		return nil, err
	}

	parsed, err := models.ParseState(state)
	if err != nil {
		return nil, err
	}
	rec.State = parsed
	if passwordHash.Valid {
		rec.PasswordHash = &passwordHash.String
	}
	if activatedAt.Valid {
		rec.ActivatedAt = &activatedAt.Time
	}
	return &rec, nil
}
