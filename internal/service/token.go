package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-wallet-service/internal/cache"
	"github.com/pribylovaa/go-wallet-service/internal/models"
	logctx "github.com/pribylovaa/go-wallet-service/internal/pkg/log"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
)

// Claims — проверенные утверждения access-токена.
type Claims struct {
	UserID uuid.UUID
	Name   string
	Email  string
}

type accessClaims struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// generateAccessToken генерирует access-токен.
// Токен самодостаточен: проверяется только подписью и сроком, без БД.
func (s *Service) generateAccessToken(ctx context.Context, user *models.User, now time.Time) (string, error) {
	const op = "service.token.generateAccessToken"

	lg := logctx.From(ctx)

	claims := accessClaims{
		UserID: user.ID.String(),
		Name:   user.Name,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.cfg.Issuer,
			Subject:   user.ID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		lg.Error("access_token_sign_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return signed, nil
}

// ValidateToken проверяет access-токен и возвращает его утверждения.
// Любой дефект (формат, подпись, срок) закрывает доступ: токен считается
// невалидным, различается только причина expired/invalid.
func (s *Service) ValidateToken(_ context.Context, tokenStr string) (*Claims, error) {
	const op = "service.token.ValidateToken"

	token, err := jwt.ParseWithClaims(tokenStr, &accessClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(s.cfg.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(s.cfg.Issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &Claims{
		UserID: uid,
		Name:   claims.Name,
		Email:  claims.Email,
	}, nil
}

// issueRefreshToken создаёт непрозрачный refresh-токен (UUID v4),
// сохраняет его в хранилище и, если сконфигурирован кэш, дублирует туда.
func (s *Service) issueRefreshToken(ctx context.Context, userID uuid.UUID, now time.Time) (string, error) {
	const op = "service.token.issueRefreshToken"

	lg := logctx.From(ctx)

	token := &models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	}

	if err := s.storage.SaveRefreshToken(ctx, token); err != nil {
		lg.Error("save_refresh_token_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, ErrInternal)
	}

	if s.rcache != nil {
		entry := &cache.RefreshEntry{
			UserID:    userID,
			ExpiresAt: token.ExpiresAt,
		}
		if err := s.rcache.Set(ctx, token.Token, entry, s.cfg.RefreshTokenTTL); err != nil {
			// Кэш — ускоритель, не источник истины.
			lg.Warn("refresh_cache_set_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return token.Token, nil
}

// lookupRefreshToken ищет refresh-токен: сначала в кэше, затем в хранилище.
func (s *Service) lookupRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	const op = "service.token.lookupRefreshToken"

	lg := logctx.From(ctx)

	if s.rcache != nil {
		entry, ok, err := s.rcache.Get(ctx, token)
		if err != nil {
			lg.Warn("refresh_cache_get_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		} else if ok {
			return &models.RefreshToken{
				Token:     token,
				UserID:    entry.UserID,
				ExpiresAt: entry.ExpiresAt,
			}, nil
		}
	}

	rt, err := s.storage.RefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrRefreshTokenNotFound)
		}

		lg.Error("refresh_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	return rt, nil
}

// dropRefreshToken удаляет токен из хранилища и кэша.
// Гонка двух конкурентных удалений безвредна: повторное удаление — no-op.
func (s *Service) dropRefreshToken(ctx context.Context, token string) error {
	const op = "service.token.dropRefreshToken"

	if err := s.storage.DeleteRefreshToken(ctx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if s.rcache != nil {
		if err := s.rcache.Delete(ctx, token); err != nil {
			logctx.From(ctx).Warn("refresh_cache_delete_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	return nil
}

// ExchangeRefreshToken обменивает действительный refresh-токен на новый
// access-токен. Сам refresh-токен при успешном обмене не ротируется и
// остаётся действительным до собственного истечения. Просроченный токен
// удаляется при предъявлении (ленивая чистка), так что повторный обмен
// того же токена вернёт ErrRefreshTokenNotFound.
func (s *Service) ExchangeRefreshToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	const op = "service.token.ExchangeRefreshToken"

	lg := logctx.From(ctx)

	rt, err := s.lookupRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if rt.ExpiredAt(now) {
		if err := s.dropRefreshToken(ctx, refreshToken); err != nil {
			lg.Error("expired_refresh_cleanup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInternal)
		}

		lg.Warn("refresh_expired",
			slog.String("op", op),
			slog.String("user_id", rt.UserID.String()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrRefreshTokenExpired)
	}

	user, err := s.storage.UserByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		lg.Error("user_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", time.Time{}, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	accessToken, err := s.generateAccessToken(ctx, user, now)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	return accessToken, now.Add(s.cfg.AccessTokenTTL), nil
}
