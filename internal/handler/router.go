package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hiroki-koketsu/go-todolists/internal/repository"
	"github.com/hiroki-koketsu/go-todolists/internal/telemetry"
	"github.com/hiroki-koketsu/go-todolists/internal/web"
)

// NewRouter wires the HTML pages, the JSON API and the health check.
func NewRouter(store *repository.Store, renderer *web.Renderer, logger *slog.Logger, metrics *telemetry.Metrics) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", Health)

	webHandler := NewWebHandler(store, renderer, logger, metrics)
	r.Handle("/static/*", http.StripPrefix("/static/", web.Static()))
	r.Mount("/", webHandler.Routes())

	todoHandler := NewTodoHandler(store, logger, metrics)
	r.Mount("/api/v1", todoHandler.Routes())

	return r
}
