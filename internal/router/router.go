// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/go-user-auth-api/internal/api/auth"
	"github.com/FACorreiaa/go-user-auth-api/internal/api/user"
)

// Config contains dependencies needed for the router setup
type Config struct {
	AuthHandler *auth.HandlerImpl
	UserHandler *user.HandlerImpl

	// AuthenticateMiddleware validates bearer tokens and populates the
	// request context; RequireAdmin gates the admin subtree.
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdmin           func(http.Handler) http.Handler

	// Pool backs the readiness probe.
	Pool *pgxpool.Pool
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	// Liveness and readiness probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Pool == nil || cfg.Pool.Ping(r.Context()) != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public Auth Routes ---
		// Credential endpoints are rate limited per client IP on top of
		// the in-account lockout policy.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(20, 1*time.Minute))

			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.RefreshToken)
			r.Post("/auth/password-reset/request", cfg.AuthHandler.RequestPasswordReset)
			r.Post("/auth/password-reset/confirm", cfg.AuthHandler.ResetPassword)
			r.Post("/auth/verify-email", cfg.AuthHandler.VerifyEmail)
		})

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Post("/auth/change-password", cfg.AuthHandler.ChangePassword)

			r.Get("/user/profile", cfg.UserHandler.GetUserProfile)
			r.Put("/user/profile", cfg.UserHandler.UpdateUserProfile)
			r.Post("/user/deactivate", cfg.UserHandler.DeactivateAccount)
		})

		// --- Admin Routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Use(cfg.RequireAdmin)

			r.Post("/admin/users/{userID}/unlock", cfg.UserHandler.UnlockAccount)
			r.Post("/admin/users/{userID}/reactivate", cfg.UserHandler.ReactivateAccount)
		})
	})

	return r
}
