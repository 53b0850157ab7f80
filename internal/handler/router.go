package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/internal/user"
	"github.com/misqat/backend/pkg/httpserver"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Auth    auth.Service
	Billing billing.Service
	Users   user.Store
	Log     *slog.Logger

	// Healthchecks run on GET /health; the endpoint reports NOT_READY when
	// any of them fails.
	Healthchecks []func(ctx context.Context) error
}

// NewRouter wires the full HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	authH := NewAuthHandler(cfg.Auth, cfg.Users)
	subH := NewSubscriptionHandler(cfg.Billing)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(log, cfg.Healthchecks...))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(cfg.Auth))

		r.Get("/me", authH.Me)

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", subH.Current)
			r.Post("/subscribe", subH.Subscribe)
			r.Post("/confirm", subH.Confirm)
			r.Post("/cancel", subH.Cancel)
		})
	})

	return r
}
