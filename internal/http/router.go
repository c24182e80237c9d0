package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-wallet-service/internal/http/handlers"
	"github.com/pribylovaa/go-wallet-service/internal/http/middleware"
	"github.com/pribylovaa/go-wallet-service/internal/service"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string                // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	Metrics  prometheus.Registerer // nil отключает учёт метрик.
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
	)
	if opts.Metrics != nil {
		root.Use(middleware.Metrics(opts.Metrics))
	}
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, svc)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, svc)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.TokenValidator) {
	r.Route("/users", func(r chi.Router) {
		// Открытые роуты.
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/access-token", h.AccessToken)

		// Роуты под bearer-токеном.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(v))
			r.Post("/deposit", h.Deposit)
			r.Post("/withdrawl", h.Withdraw)
			r.Get("/{userId}/portfolio", h.Portfolio)
		})
	})
}
