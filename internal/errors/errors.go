// errors стандартизирует ответы об ошибках HTTP-слоя wallet-сервиса.
// На вход он принимает ошибку сервисного слоя, а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки внутренних деталей.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-wallet-service/internal/service"
)

// APIError — единый формат ошибки для клиента.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Локальные ошибки HTTP-слоя (не доходят до сервиса).
var (
	// ErrInvalidArgument — битое тело запроса/параметры пути.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoToken — на защищённом роуте отсутствует bearer-токен.
	ErrNoToken = errors.New("no token provided")
)

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и
// унифицированный ответ.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не
//     послать "200 OK" с телом ошибки и не замаскировать баг;
//   - неизвестная ошибка — 500/internal (без утечки деталей).
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)

	return status, ErrorResponse{
		Error: APIError{
			Code:    code,
			Message: msg,
		},
	}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// base — таблица маппинга доменных ошибок на HTTP-статус/код/сообщение.
// Сообщения для неверного пароля и неизвестного email совпадают намеренно.
func base(err error) (int, string, string) {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", "invalid argument"
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount", "amount must be a positive number"
	case errors.Is(err, service.ErrInsufficientBalance):
		return http.StatusBadRequest, "insufficient_balance", "your balance is not enough to withdrawl"
	case errors.Is(err, service.ErrUserExists):
		return http.StatusConflict, "user_exists", "user is existed"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "you have typed wrong email or password, please try again"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found", "this current user is not existed in our system"
	case errors.Is(err, service.ErrRefreshTokenNotFound):
		return http.StatusNotFound, "refresh_token_not_found", "refresh token is not existed"
	case errors.Is(err, service.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "refresh_token_expired", "refresh token was expired, please make a new signin request"
	case errors.Is(err, ErrNoToken):
		return http.StatusUnauthorized, "no_token_provided", "no token provided"
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "token_invalid_or_expired", "token has expired, please login again"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
