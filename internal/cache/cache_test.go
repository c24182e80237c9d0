package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Интеграционные тесты кэша refresh-токенов поверх Redis (redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/cache -v -race -count=1

// startRedis — поднимает контейнер Redis и возвращает кэш.
// Без GO_TEST_INTEGRATION тест пропускается.
func startRedis(t *testing.T) RefreshCache {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	rc, err := NewRedisCache(fmt.Sprintf("redis://%s:%s/0", host, port.Port()), "")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = rc.Close()
		_ = c.Terminate(context.Background())
	})

	return rc
}

func TestIntegration_SetGetDelete(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()

	token := uuid.NewString()
	entry := &RefreshEntry{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}

	// Пустой кэш: промах без ошибки.
	_, ok, err := rc.Get(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, rc.Set(ctx, token, entry, time.Hour))

	got, ok, err := rc.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, entry.UserID, got.UserID)
	require.True(t, entry.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, rc.Delete(ctx, token))

	_, ok, err = rc.Get(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)

	// Повторное удаление — no-op.
	require.NoError(t, rc.Delete(ctx, token))
}

func TestIntegration_TTLExpiry(t *testing.T) {
	rc := startRedis(t)
	ctx := context.Background()

	token := uuid.NewString()
	entry := &RefreshEntry{
		UserID:    uuid.New(),
		ExpiresAt: time.Now().Add(time.Second).UTC(),
	}

	require.NoError(t, rc.Set(ctx, token, entry, time.Second))

	_, ok, err := rc.Get(ctx, token)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1500 * time.Millisecond)

	_, ok, err = rc.Get(ctx, token)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisCache("not-a-url", "")
	require.Error(t, err)
}
