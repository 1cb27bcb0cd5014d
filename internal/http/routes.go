// Package httpx provides the HTTP surface of the portal API: the
// public signup flow, the SSO login flow, and the admin endpoints for
// invitations and the user directory.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/peoplehub/portal-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Signup      *service.SignupService
	Invitations *service.InvitationService
	Directory   *service.DirectoryService
	Auth        AuthServiceInterface

	CookieDomain string
	// Metrics serves the scrape endpoint when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	if services.Signup != nil {
		registerSignupRoutes(mux, &SignupHandlers{
			Svc:          services.Signup,
			CookieDomain: services.CookieDomain,
		})
	}
	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:          services.Auth,
			CookieDomain: services.CookieDomain,
			Logger:       logger,
		})
		if services.Invitations != nil {
			registerInvitationRoutes(mux, &InvitationHandlers{Svc: services.Invitations}, services.Auth)
		}
		if services.Directory != nil {
			registerDirectoryRoutes(mux, &DirectoryHandlers{Svc: services.Directory}, services.Auth)
		}
	}

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return handler
}

func registerSignupRoutes(mux *http.ServeMux, h *SignupHandlers) {
	mux.HandleFunc("GET /api/signup/session", h.Session)
	mux.HandleFunc("POST /api/signup/register", h.Register)
	mux.HandleFunc("POST /api/signup/confirm", h.Confirm)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerInvitationRoutes(mux *http.ServeMux, h *InvitationHandlers, auth AuthServiceInterface) {
	adminOnly := RequireAdmin(auth)
	mux.Handle("POST /api/invitations", adminOnly(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/invitations", adminOnly(http.HandlerFunc(h.List)))
	mux.Handle("DELETE /api/invitations/{id}", adminOnly(http.HandlerFunc(h.Revoke)))
}

func registerDirectoryRoutes(mux *http.ServeMux, h *DirectoryHandlers, auth AuthServiceInterface) {
	adminOnly := RequireAdmin(auth)
	mux.Handle("GET /api/users", adminOnly(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/users/{id}/activate", adminOnly(http.HandlerFunc(h.Activate)))
	mux.Handle("POST /api/users/{id}/deactivate", adminOnly(http.HandlerFunc(h.Deactivate)))
}
