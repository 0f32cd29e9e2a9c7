package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoginThrottle_Defaults(t *testing.T) {
	th := NewLoginThrottle(nil, 0, 0)
	assert.EqualValues(t, defaultMaxAttempts, th.maxAttempts)
	assert.Equal(t, defaultLockout, th.lockout)
	assert.Equal(t, "login:fail:a@x.com", th.key("a@x.com"))
}

// Runs against a real server when REDIS_TEST_ADDR is set.
func TestLoginThrottle_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	th := NewLoginThrottle(client, 2, time.Minute)
	identity := uuid.NewString() + "@example.com"
	t.Cleanup(func() { _ = th.Reset(ctx, identity) })

	blocked, err := th.Blocked(ctx, identity)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, th.Fail(ctx, identity))
	blocked, err = th.Blocked(ctx, identity)
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, th.Fail(ctx, identity))
	blocked, err = th.Blocked(ctx, identity)
	require.NoError(t, err)
	assert.True(t, blocked)

	ttl, err := client.TTL(ctx, th.key(identity)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, th.Reset(ctx, identity))
	blocked, err = th.Blocked(ctx, identity)
	require.NoError(t, err)
	assert.False(t, blocked)
}
