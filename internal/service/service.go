// service содержит бизнес-логику wallet-сервиса:
// регистрацию/аутентификацию пользователей, жизненный цикл токенов
// и движение средств по балансу через интерфейсы из пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Ошибки возвращаются наружу и маппятся HTTP-слоем на статусы
//     (см. комментарии к переменным ошибок ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-wallet-service/internal/cache"
	"github.com/pribylovaa/go-wallet-service/internal/config"
	"github.com/pribylovaa/go-wallet-service/internal/storage"
)

var (
	// ErrUserExists — email уже занят другим пользователем.
	// Транспорт: HTTP 409.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials — пара email/пароль неверна или пользователь
	// не найден. Текст намеренно один на оба случая, чтобы не допускать
	// перебора аккаунтов. Транспорт: HTTP 401.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUserNotFound — пользователь не существует. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidToken — access-токен некорректен по формату/подписи.
	// Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия access-токена истёк.
	// Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrRefreshTokenNotFound — refresh-токен отсутствует в хранилище.
	// Транспорт: HTTP 404.
	ErrRefreshTokenNotFound = errors.New("refresh token not found")

	// ErrRefreshTokenExpired — refresh-токен просрочен; запись удалена,
	// повторное предъявление даст ErrRefreshTokenNotFound.
	// Транспорт: HTTP 401.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrInsufficientBalance — списание увело бы баланс в минус.
	// Транспорт: HTTP 400.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount — сумма операции не положительна.
	// Транспорт: HTTP 400.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInternal — неожиданная ошибка хранилища/подписи; детали наружу
	// не отдаются. Транспорт: HTTP 500.
	ErrInternal = errors.New("internal error")
)

// Service описывает бизнес-логику wallet-сервиса.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	rcache  cache.RefreshCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetRefreshCache устанавливает кэш refresh-токенов (опционально).
func (s *Service) SetRefreshCache(c cache.RefreshCache) {
	s.rcache = c
}
