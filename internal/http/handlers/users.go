package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apierrors "github.com/pribylovaa/go-wallet-service/internal/errors"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	UserID       uuid.UUID `json:"userId"`
}

type accessTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

type balanceRequest struct {
	Amount int64  `json:"amount"`
	UserID string `json:"userId"`
}

// Register создаёт пользователя с нулевым балансом.
// POST /users/register, body {name, email, password}.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	profile, err := h.svc.Register(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Login выполняет вход и возвращает пару токенов.
// POST /users/login, body {email, password}.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	pair, userID, err := h.svc.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       userID,
	})
}

// AccessToken обменивает refresh-токен на новый access-токен.
// POST /users/access-token, body {refreshToken}.
func (h *Handlers) AccessToken(w http.ResponseWriter, r *http.Request) {
	var in accessTokenRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if strings.TrimSpace(in.RefreshToken) == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	accessToken, _, err := h.svc.ExchangeRefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accessTokenResponse{AccessToken: accessToken})
}

// Deposit зачисляет средства на баланс.
// POST /users/deposit, body {amount, userId}; требует bearer-токен.
func (h *Handlers) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, amount, ok := h.decodeBalanceRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.Deposit(r.Context(), userID, amount)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Withdraw списывает средства с баланса.
// POST /users/withdrawl (орфография исторически закреплена клиентами),
// body {amount, userId}; требует bearer-токен.
func (h *Handlers) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, amount, ok := h.decodeBalanceRequest(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.Withdraw(r.Context(), userID, amount)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Portfolio возвращает публичный профиль пользователя.
// GET /users/{userId}/portfolio; требует bearer-токен.
func (h *Handlers) Portfolio(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	profile, err := h.svc.Portfolio(r.Context(), userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// decodeBalanceRequest разбирает тело deposit/withdrawl: сумма должна быть
// положительной, userId — валидным UUID.
func (h *Handlers) decodeBalanceRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, int64, bool) {
	var in balanceRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return uuid.Nil, 0, false
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return uuid.Nil, 0, false
	}

	if in.Amount <= 0 {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return uuid.Nil, 0, false
	}

	return userID, in.Amount, true
}
