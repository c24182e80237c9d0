package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-wallet-service/internal/models"
	logctx "github.com/pribylovaa/go-wallet-service/internal/pkg/log"
	"github.com/pribylovaa/go-wallet-service/internal/pkg/redact"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
)

// Register регистрирует нового пользователя с нулевым балансом.
//
// Предварительная проверка email — быстрый путь; источником истины служит
// уникальный индекс хранилища, поэтому гонка двух конкурентных регистраций
// с одним email всё равно завершится ErrUserExists у одной из сторон.
// Email сравнивается с учётом регистра.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.Profile, error) {
	const op = "service.auth.Register"

	lg := logctx.From(ctx).With(slog.String("op", op), slog.String("email", redact.Email(email)))

	_, err := s.storage.UserByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		lg.Error("password_hash_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Balance:      0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}

		lg.Error("save_user_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	lg.Info("user_registered", slog.String("user_id", user.ID.String()))

	profile := user.Profile()
	return &profile, nil
}

// Login выполняет вход по email+пароль и выпускает пару токенов.
//
// Неизвестный email и неверный пароль дают одну и ту же ошибку
// ErrInvalidCredentials: ответы неразличимы для клиента.
func (s *Service) Login(ctx context.Context, email, password string) (*models.TokenPair, uuid.UUID, error) {
	const op = "service.auth.Login"

	lg := logctx.From(ctx).With(slog.String("op", op), slog.String("email", redact.Email(email)))

	user, err := s.storage.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		lg.Error("user_lookup_failed", slog.String("err", err.Error()))
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	now := time.Now().UTC()

	accessToken, err := s.generateAccessToken(ctx, user, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID, now)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_logged_in", slog.String("user_id", user.ID.String()))

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	}, user.ID, nil
}
