package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken — долгоживущий непрозрачный токен (UUID v4), хранится в БД.
//
// Токен неизменяем: создаётся при логине, удаляется либо джанитором, либо
// лениво — при предъявлении уже просроченного токена. Состояние
// Active/Expired вычисляется из ExpiresAt на момент чтения.
type RefreshToken struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExpiredAt сообщает, просрочен ли токен на момент now.
func (t *RefreshToken) ExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
