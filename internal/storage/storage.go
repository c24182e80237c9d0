package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-wallet-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/токен).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email/refresh-token).
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientBalance — списание увело бы баланс в минус.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создает нового пользователя.
	// Уникальность email гарантируется индексом хранилища: при конфликте
	// возвращается ErrAlreadyExists.
	SaveUser(ctx context.Context, user *models.User) error
	// UserByEmail находит пользователя по email (чувствительно к регистру).
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ChangeBalance атомарно изменяет баланс пользователя на delta
	// (положительная — пополнение, отрицательная — списание) и возвращает
	// обновлённого пользователя. Конкурентные изменения одного пользователя
	// сериализуются средствами хранилища. Если итоговый баланс стал бы
	// отрицательным — ErrInsufficientBalance, баланс не меняется.
	ChangeBalance(ctx context.Context, id uuid.UUID, delta int64) (*models.User, error)
}

// RefreshTokenStorage выполняет операции над refresh-токенами.
type RefreshTokenStorage interface {
	// SaveRefreshToken сохраняет новый refresh-токен.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error
	// RefreshToken находит refresh-токен по его значению.
	RefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	// DeleteRefreshToken удаляет refresh-токен по значению.
	// Удаление отсутствующего токена не является ошибкой.
	DeleteRefreshToken(ctx context.Context, token string) error
	// DeleteExpiredTokens удаляет все токены с expires_at <= now.
	DeleteExpiredTokens(ctx context.Context, now time.Time) error
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	RefreshTokenStorage
	Close(ctx context.Context) error
}
