package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-wallet-service/internal/models"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
)

// Интеграционные тесты для пакета mongo:
// - поднимают MongoDB через testcontainers-go (mongo:7.0) как single-node
//   replica set — серверные транзакции требуют реплика-сета;
// - проверяют CRUD пользователей, уникальность email, атомарное изменение
//   баланса и жизненный цикл refresh-токенов.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/mongo -v -race -count=1

const testTimeout = 10 * time.Second

// startMongo — поднимает контейнер, инициализирует реплика-сет и возвращает
// хранилище с отдельной БД на тест. Без GO_TEST_INTEGRATION тест пропускается.
func startMongo(t *testing.T) *Storage {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "mongo:7.0",
		Cmd:          []string{"--replSet", "rs0", "--bind_ip_all"},
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)

	// Single-node replica set: rs.initiate + ожидание PRIMARY.
	code, _, err := c.Exec(ctx, []string{"mongosh", "--quiet", "--eval", "rs.initiate()"})
	require.NoError(t, err)
	require.Zero(t, code)

	deadline := time.Now().Add(60 * time.Second)
	for {
		code, _, err = c.Exec(ctx, []string{"mongosh", "--quiet", "--eval", "if (!db.hello().isWritablePrimary) quit(1)"})
		if err == nil && code == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("replica set did not become primary")
		}
		time.Sleep(500 * time.Millisecond)
	}

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	dbName := "wallet_test_" + uuid.NewString()[:8]
	uri := fmt.Sprintf("mongodb://%s:%s/%s?directConnection=true", host, port.Port(), dbName)

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	st, err := New(connCtx, uri)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = st.db.Drop(ctx)
		_ = st.Close(ctx)
		_ = c.Terminate(context.Background())
	})

	return st
}

func testUser(balance int64) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        fmt.Sprintf("user-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "hash",
		Balance:      balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestIntegration_SaveUser_And_Lookup(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	u := testUser(0)
	require.NoError(t, st.SaveUser(ctx, u))

	got, err := st.UserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, u.Email, got.Email)
	require.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Second)

	byID, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_SaveUser_DuplicateEmail(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	u := testUser(0)
	require.NoError(t, st.SaveUser(ctx, u))

	dup := testUser(0)
	dup.Email = u.Email
	err := st.SaveUser(ctx, dup)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestIntegration_UserByEmail_CaseSensitive(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	u := testUser(0)
	u.Email = "CaseUser@Example.com"
	require.NoError(t, st.SaveUser(ctx, u))

	// Точное совпадение находит запись.
	_, err := st.UserByEmail(ctx, "CaseUser@Example.com")
	require.NoError(t, err)

	// Другой регистр — другой email.
	_, err = st.UserByEmail(ctx, "caseuser@example.com")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ChangeBalance(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u := testUser(100)
	require.NoError(t, st.SaveUser(ctx, u))

	// Списание в пределах баланса.
	got, err := st.ChangeBalance(ctx, u.ID, -100)
	require.NoError(t, err)
	require.Zero(t, got.Balance)

	// Пополнение.
	got, err = st.ChangeBalance(ctx, u.ID, 50)
	require.NoError(t, err)
	require.Equal(t, int64(50), got.Balance)

	// Недостаточно средств: баланс не меняется.
	_, err = st.ChangeBalance(ctx, u.ID, -150)
	require.ErrorIs(t, err, storage.ErrInsufficientBalance)

	cur, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(50), cur.Balance)

	// Несуществующий пользователь.
	_, err = st.ChangeBalance(ctx, uuid.New(), 10)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_ChangeBalance_Concurrent(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	u := testUser(0)
	require.NoError(t, st.SaveUser(ctx, u))

	const workers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := st.ChangeBalance(ctx, u.ID, 10); err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	got, err := st.UserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(workers*10), got.Balance)
}

func TestIntegration_RefreshTokens_Lifecycle(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	now := time.Now().UTC()
	rt := &models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, st.SaveRefreshToken(ctx, rt))

	got, err := st.RefreshToken(ctx, rt.Token)
	require.NoError(t, err)
	require.Equal(t, rt.UserID, got.UserID)
	require.WithinDuration(t, rt.ExpiresAt, got.ExpiresAt, time.Second)

	require.NoError(t, st.DeleteRefreshToken(ctx, rt.Token))

	_, err = st.RefreshToken(ctx, rt.Token)
	require.ErrorIs(t, err, storage.ErrNotFound)

	// Повторное удаление — no-op.
	require.NoError(t, st.DeleteRefreshToken(ctx, rt.Token))
}

func TestIntegration_DeleteExpiredTokens(t *testing.T) {
	st := startMongo(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	now := time.Now().UTC()
	expired := &models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    uuid.New(),
		CreatedAt: now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	}
	alive := &models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    uuid.New(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, st.SaveRefreshToken(ctx, expired))
	require.NoError(t, st.SaveRefreshToken(ctx, alive))

	require.NoError(t, st.DeleteExpiredTokens(ctx, now))

	_, err := st.RefreshToken(ctx, expired.Token)
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.RefreshToken(ctx, alive.Token)
	require.NoError(t, err)
}

func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri  string
		want string
	}{
		{"mongodb://localhost:27017/walletdb", "walletdb"},
		{"mongodb://localhost:27017/", defaultDBName},
		{"mongodb://localhost:27017", defaultDBName},
		{"mongodb://host:27017/name?directConnection=true", "name"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, databaseFromURI(tt.uri), tt.uri)
	}
}
