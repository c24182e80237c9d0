package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-wallet-service/internal/models"
	logctx "github.com/pribylovaa/go-wallet-service/internal/pkg/log"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
)

// Deposit зачисляет amount на баланс пользователя и возвращает обновлённый
// профиль. Чтение-изменение-запись выполняется хранилищем атомарно, поэтому
// конкурентные пополнения одного пользователя сериализуются без потерь.
func (s *Service) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*models.Profile, error) {
	const op = "service.balance.Deposit"

	if amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	return s.changeBalance(ctx, op, userID, amount)
}

// Withdraw списывает amount с баланса пользователя.
// Если balance - amount < 0 — ErrInsufficientBalance, баланс не меняется.
func (s *Service) Withdraw(ctx context.Context, userID uuid.UUID, amount int64) (*models.Profile, error) {
	const op = "service.balance.Withdraw"

	if amount <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAmount)
	}

	return s.changeBalance(ctx, op, userID, -amount)
}

func (s *Service) changeBalance(ctx context.Context, op string, userID uuid.UUID, delta int64) (*models.Profile, error) {
	lg := logctx.From(ctx).With(slog.String("op", op), slog.String("user_id", userID.String()))

	user, err := s.storage.ChangeBalance(ctx, userID, delta)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("user_not_found")
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		case errors.Is(err, storage.ErrInsufficientBalance):
			lg.Warn("insufficient_balance")
			return nil, fmt.Errorf("%s: %w", op, ErrInsufficientBalance)
		default:
			lg.Error("change_balance_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	lg.Info("balance_changed", slog.Int64("delta", delta), slog.Int64("balance", user.Balance))

	profile := user.Profile()
	return &profile, nil
}

// Portfolio возвращает публичный профиль пользователя.
func (s *Service) Portfolio(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "service.balance.Portfolio"

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		logctx.From(ctx).Error("user_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInternal)
	}

	profile := user.Profile()
	return &profile, nil
}
