package models

import (
	"time"

	"github.com/google/uuid"
)

// User — модель пользователя кошелька.
//
// Баланс хранится в целых единицах валюты (int64); политика сервиса не
// допускает отрицательных значений. PasswordHash никогда не отдаётся наружу —
// публичная проекция собирается через Profile().
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Balance      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile — публичная проекция пользователя: ровно id, name, email, balance.
type Profile struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Balance int64     `json:"balance"`
}

// Profile возвращает публичную проекцию без хэша пароля.
func (u *User) Profile() Profile {
	return Profile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Balance: u.Balance,
	}
}
