package store

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"beefirst/internal/registration/models"
	"beefirst/pkg/platform/sentinel"
)

const memoryShardCount = 128

type memoryShard struct {
	mu   sync.Mutex
	rows map[string]*models.Registration
}

// InMemoryStore keeps registrations in process memory. Rows are partitioned
// across mutex-guarded shards by email; a verification holds its shard lock for
// the full check-and-write, which serializes attempts on the same email.
type InMemoryStore struct {
	shards   [memoryShardCount]memoryShard
	verifier PasswordVerifier
	policy   models.Policy
	now      func() time.Time
}

type MemoryOption func(*InMemoryStore)

// WithClock overrides the store clock. Tests use it to age claims.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewInMemory(verifier PasswordVerifier, policy models.Policy, opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		verifier: verifier,
		policy:   policy,
		now:      time.Now,
	}
	for i := range s.shards {
		s.shards[i].rows = make(map[string]*models.Registration)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) shard(email string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return &s.shards[h.Sum32()%memoryShardCount]
}

func (s *InMemoryStore) ClaimEmail(ctx context.Context, email, passwordHash, code string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	sh := s.shard(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.now()
	rec, ok := sh.rows[email]
	if !ok {
		hash := passwordHash
		sh.rows[email] = &models.Registration{
			Email:            email,
			PasswordHash:     &hash,
			VerificationCode: code,
			State:            models.StateClaimed,
			CreatedAt:        now,
		}
		return true, nil
	}
	if !rec.State.Reclaimable() {
		return false, nil
	}
	rec.Reclaim(passwordHash, code, now)
	return true, nil
}

func (s *InMemoryStore) VerifyAndActivate(ctx context.Context, email, code, password string) (models.VerifyResult, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sh := s.shard(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec := sh.rows[email]
	now := s.now()

	codeMatches, passwordMatches := checkCredentials(s.verifier, rec, code, password)
	outcome := models.Evaluate(rec, codeMatches, passwordMatches, now, s.policy)
	if outcome.Effect == models.EffectNone {
		return outcome.Result, nil
	}

	// Mutate a copy so a rejected transition leaves the row as it was.
	next := cloneRegistration(rec)
	if err := next.Apply(outcome, now); err != nil {
		return "", fmt.Errorf("apply %s: %w: %w", outcome.Effect, sentinel.ErrInvalidState, err)
	}
	sh.rows[email] = next
	return outcome.Result, nil
}

func (s *InMemoryStore) Get(_ context.Context, email string) (*models.Registration, error) {
	sh := s.shard(email)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.rows[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRegistration(rec), nil
}

// ExpireStale expires CLAIMED rows older than the TTL and purges their hashes.
func (s *InMemoryStore) ExpireStale(ctx context.Context) (int64, error) {
	var expired int64
	now := s.now()
	for i := range s.shards {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, rec := range sh.rows {
			if rec.State != models.StateClaimed || !rec.IsExpiredAt(now, s.policy.TTL) {
				continue
			}
			if err := rec.Apply(models.Outcome{Result: models.VerifyExpired, Effect: models.EffectExpire, Attempts: rec.AttemptCount}, now); err == nil {
				expired++
			}
		}
		sh.mu.Unlock()
	}
	return expired, nil
}
