package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beefirst/internal/registration/metrics"
	"beefirst/internal/registration/models"
	"beefirst/internal/registration/store"
)

type plainVerifier struct{}

func (plainVerifier) Verify(password, hash string) bool { return hash == password }
func (plainVerifier) DummyHash() string                 { return "\x00" }

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSweepPurgesStaleClaims(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	st := store.NewInMemory(plainVerifier{}, models.DefaultPolicy(), store.WithClock(clock))
	ctx := context.Background()

	_, err := st.ClaimEmail(ctx, "stale@x.com", "pw", "1234")
	require.NoError(t, err)
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	_, err = st.ClaimEmail(ctx, "fresh@x.com", "pw", "1234")
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	sw := New(st, time.Minute, WithLogger(discard), WithMetrics(m))

	assert.Equal(t, int64(1), sw.Sweep(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Expired))

	rec, err := st.Get(ctx, "stale@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.StateExpired, rec.State)
	assert.Nil(t, rec.PasswordHash)

	ok, err := st.ClaimEmail(ctx, "stale@x.com", "pw2", "5678")
	require.NoError(t, err)
	assert.True(t, ok, "swept rows are reclaimable")
}

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireStale(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestRunStopsOnCancel(t *testing.T) {
	exp := &countingExpirer{err: errors.New("db down")}
	sw := New(exp, 5*time.Millisecond, WithLogger(discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()

	require.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, time.Second, 5*time.Millisecond,
		"sweeper keeps ticking after failures")
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
