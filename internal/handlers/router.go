package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/amgad21/BlipVerse/internal/config"
	"github.com/amgad21/BlipVerse/internal/db"
	"github.com/amgad21/BlipVerse/internal/hub"
	appMiddleware "github.com/amgad21/BlipVerse/internal/middleware"
)

// NewRouter wires every handler into the API surface.
func NewRouter(cfg *config.Config, repo *db.Repository, feedHub *hub.Hub, logger *log.Logger) http.Handler {
	authHandler := NewAuthHandler(repo, logger, cfg)
	blipHandler := NewBlipHandler(repo, logger)
	reactionHandler := NewReactionHandler(repo, logger)
	reportHandler := NewReportHandler(repo, logger)
	adminHandler := NewAdminHandler(repo, logger)
	liveHandler := NewLiveHandler(feedHub, logger, cfg.AllowedOrigins)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/verify-email/{token}", authHandler.VerifyEmail)
		r.Get("/blips", blipHandler.List)
		r.Get("/ws", liveHandler.Serve)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.JWTAuth(cfg.JWTSecret))

			r.Get("/auth/check", authHandler.Check)

			// Writes re-check the ban flag on every attempt.
			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.RequireActive(repo, logger))

				r.Post("/blips", blipHandler.Create)
				r.Post("/blips/{blipID}/reactions", reactionHandler.React)
				r.Post("/reports", reportHandler.Create)
			})

			// Admin routes carry the same ban re-check as user writes, so a
			// banned administrator's token stops working on its next call.
			r.Route("/admin", func(r chi.Router) {
				r.Use(appMiddleware.RequireActive(repo, logger))
				r.Use(appMiddleware.RequireAdmin)

				r.Get("/reports", reportHandler.ListForAdmin)
				r.Post("/reports/{reportID}/resolve", reportHandler.Resolve)
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users/{userID}/ban", adminHandler.Ban)
				r.Post("/users/{userID}/unban", adminHandler.Unban)
				r.Post("/users/{userID}/delete", adminHandler.Delete)
			})
		})
	})

	return r
}
