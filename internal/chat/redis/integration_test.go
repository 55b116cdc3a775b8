package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestConversationLockOnRedis runs the lock against a real Redis so the
// unlock script is executed by the server rather than miniredis.
func TestConversationLockOnRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	l := NewConversationLock(client, 5*time.Second, nil)

	token, ok, err := l.TryLock(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok, "lock is already held")

	require.NoError(t, l.Unlock(ctx, 7, "not-the-owner"))
	assert.Equal(t, int64(1), client.Exists(ctx, lockKey(7)).Val(), "foreign token must not release the lock")

	require.NoError(t, l.Unlock(ctx, 7, token))
	assert.Equal(t, int64(0), client.Exists(ctx, lockKey(7)).Val())

	_, ok, err = l.TryLock(ctx, 8)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 5*time.Second, client.TTL(ctx, lockKey(8)).Val(), float64(time.Second))
}
