package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/handler"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/http/middleware"
)

type Dependencies struct {
	Auth         *handler.AuthHandler
	Form         *handler.FormHandler
	Confirm      *handler.ConfirmHandler
	Link         *handler.LinkHandler
	Health       *handler.HealthHandler
	Sessions     middleware.SessionParser
	LoginLimiter *middleware.RateLimiter
}

func New(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health/live", deps.Health.Live)
	r.Get("/health/ready", deps.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/login", deps.Auth.LoginPage)
	r.With(deps.LoginLimiter.Middleware()).Post("/login", deps.Auth.Login)

	r.Get("/confirmacion", deps.Link.Confirm)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(deps.Sessions, "/login"))
		r.Post("/logout", deps.Auth.Logout)
		r.Get("/", deps.Form.Index)
		r.Get("/records/{recordID}", deps.Form.Record)
		r.Post("/records/{recordID}/issue", deps.Form.Issue)
		r.Get("/confirm", deps.Confirm.Page)
		r.Post("/confirm", deps.Confirm.Submit)
	})
	return r
}
