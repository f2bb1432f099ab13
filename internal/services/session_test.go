package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	sm := NewSessionManager(client)

	token, err := sm.CreateSession(ctx, "123456")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	key, ok, err := sm.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "123456", key)
	assert.Equal(t, SessionDuration, mr.TTL(SessionKeyPrefix+token))

	t.Run("new login replaces the old session", func(t *testing.T) {
		second, err := sm.CreateSession(ctx, "123456")
		require.NoError(t, err)

		_, ok, err := sm.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = sm.ValidateSession(ctx, second)
		require.NoError(t, err)
		assert.True(t, ok)
		token = second
	})

	t.Run("expired", func(t *testing.T) {
		other, err := sm.CreateSession(ctx, "654321")
		require.NoError(t, err)
		mr.FastForward(SessionDuration + time.Second)

		_, ok, err := sm.ValidateSession(ctx, other)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalidate account sessions", func(t *testing.T) {
		fresh, err := sm.CreateSession(ctx, "111111")
		require.NoError(t, err)
		require.NoError(t, sm.InvalidateAccountSessions(ctx, "111111"))

		_, ok, err := sm.ValidateSession(ctx, fresh)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("logout", func(t *testing.T) {
		fresh, err := sm.CreateSession(ctx, "222222")
		require.NoError(t, err)
		require.NoError(t, sm.InvalidateSession(ctx, fresh))

		_, ok, err := sm.ValidateSession(ctx, fresh)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, mr.Exists(AccountSessionKeyPrefix+"222222"))
	})

	t.Run("empty token", func(t *testing.T) {
		_, ok, err := sm.ValidateSession(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRedisNotifier(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	n := NewRedisNotifier(client)

	changes, cancel, err := n.Subscribe(ctx, "123456")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, n.Publish(ctx, "654321"))
	require.NoError(t, n.Publish(ctx, "123456"))

	select {
	case _, ok := <-changes:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-changes:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
