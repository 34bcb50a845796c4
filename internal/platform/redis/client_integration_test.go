//go:build integration

package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"beefirst/internal/platform/config"
	"beefirst/pkg/testutil/containers"
)

func TestNewConnectsAndPings(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)
	ctx := context.Background()

	cfg := config.Default().Redis
	cfg.URL = rc.Addr
	client, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	require.NoError(t, client.Health(ctx))
}

func TestNewWithoutURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	require.Nil(t, client)
}
