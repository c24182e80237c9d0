package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-wallet-service/internal/config"
	"github.com/pribylovaa/go-wallet-service/internal/models"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
	"github.com/pribylovaa/go-wallet-service/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "wallet-service",
	}
}

func newSvc(t *testing.T) (*Service, *mocks.MockStorage, *gomock.Controller) {
	t.Helper()
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	svc := New(st, testCfg())
	return svc, st, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@example.com"

	st.EXPECT().UserByEmail(gomock.Any(), email).Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			require.NotEqual(t, uuid.Nil, u.ID)
			require.Equal(t, "Alice", u.Name)
			require.Equal(t, email, u.Email)
			require.Zero(t, u.Balance)
			// Хэш, не исходный пароль.
			require.NotEqual(t, "Abcdef1!", u.PasswordHash)
			require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("Abcdef1!")))
			return nil
		})

	profile, err := svc.Register(ctx, "Alice", email, "Abcdef1!")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, profile.ID)
	require.Equal(t, "Alice", profile.Name)
	require.Equal(t, email, profile.Email)
	require.Zero(t, profile.Balance)
}

func TestRegister_EmailTaken_OnLookup(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(&models.User{ID: uuid.New(), Email: "user@example.com"}, nil)

	_, err := svc.Register(context.Background(), "Alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_SaveUserAlreadyExists_MapsToUserExists(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Гонка: предварительная проверка прошла, уникальный индекс сработал на вставке.
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(storage.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), "Alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_EmailCaseSensitive(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	// Email не нормализуется: в хранилище уходит исходная строка.
	st.EXPECT().UserByEmail(gomock.Any(), "User@Example.com").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			require.Equal(t, "User@Example.com", u.Email)
			return nil
		})

	_, err := svc.Register(context.Background(), "Alice", "User@Example.com", "Abcdef1!")
	require.NoError(t, err)
}

func TestRegister_StorageErrors_MapToInternal(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, errors.New("db down"))

	_, err := svc.Register(context.Background(), "Alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInternal)

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		Return(errors.New("insert failed"))

	_, err = svc.Register(context.Background(), "Alice", "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInternal)
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	email := "user@example.com"
	pw := "Abcdef1!"
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        email,
		PasswordHash: mustHashPW(t, pw),
	}

	st.EXPECT().UserByEmail(gomock.Any(), email).Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *models.RefreshToken) error {
			require.Equal(t, user.ID, rt.UserID)
			// Непрозрачный токен — валидный UUID v4.
			_, parseErr := uuid.Parse(rt.Token)
			require.NoError(t, parseErr)
			require.WithinDuration(t, time.Now().Add(svc.cfg.RefreshTokenTTL), rt.ExpiresAt, 2*time.Second)
			return nil
		})

	pair, uid, err := svc.Login(ctx, email, pw)
	require.NoError(t, err)
	require.Equal(t, user.ID, uid)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.WithinDuration(t, time.Now().Add(svc.cfg.AccessTokenTTL), pair.AccessExpiresAt, 2*time.Second)

	// Access-токен проверяется и несёт утверждения того же пользователя.
	claims, err := svc.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, user.Email, claims.Email)
	require.Equal(t, user.Name, claims.Name)
}

func TestLogin_UnknownEmail_OrWrongPassword_SameError(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, storage.ErrNotFound)

	_, _, errUnknown := svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, errUnknown)
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)

	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: mustHashPW(t, "Abcdef1!")}
	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(user, nil)

	_, _, errWrong := svc.Login(context.Background(), "user@example.com", "WRONG1!")
	require.Error(t, errWrong)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)

	// Оба случая неразличимы для клиента.
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
}

func TestLogin_StorageError_MapsToInternal(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").
		Return(nil, errors.New("db problem"))

	_, _, err := svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInternal)
}

func TestLogin_SaveRefreshTokenFails(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := &models.User{ID: uuid.New(), Email: "user@example.com", PasswordHash: mustHashPW(t, "Abcdef1!")}

	st.EXPECT().UserByEmail(gomock.Any(), "user@example.com").Return(user, nil)
	st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		Return(errors.New("insert failed"))

	_, _, err := svc.Login(context.Background(), "user@example.com", "Abcdef1!")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInternal)
}
