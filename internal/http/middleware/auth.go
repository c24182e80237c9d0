package middleware

import (
	"context"
	"net/http"
	"strings"

	apierrors "github.com/pribylovaa/go-wallet-service/internal/errors"
	"github.com/pribylovaa/go-wallet-service/internal/service"
)

// TokenValidator — контракт проверки access-токена (реализуется сервисом).
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*service.Claims, error)
}

type claimsKey struct{}

// ClaimsFrom достаёт проверенные утверждения access-токена из контекста.
func ClaimsFrom(ctx context.Context) (*service.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*service.Claims)
	return c, ok
}

// RequireAuth проверяет bearer-токен из Authorization и кладёт его
// утверждения в контекст. Без токена — 401/no_token_provided; с битым или
// просроченным — 401/token_invalid_or_expired; защищённый обработчик в
// обоих случаях не выполняется.
func RequireAuth(v TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierrors.WriteError(w, r, apierrors.ErrNoToken)
				return
			}

			claims, err := v.ValidateToken(r.Context(), token)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization: Bearer <token>.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) || len(auth) <= len(prefix) {
		return ""
	}

	return strings.TrimSpace(auth[len(prefix):])
}
