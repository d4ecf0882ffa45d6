package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/personify-ai/personify/internal/api/middleware"
	"github.com/personify-ai/personify/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth          *mw.Auth
	RateLimit     *mw.RateLimit
	WebhookVerify *mw.WebhookVerify

	HealthHandler http.HandlerFunc

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	RefreshHandler  http.HandlerFunc

	CurrentUserHandler    http.HandlerFunc
	CreateAnalysisHandler http.HandlerFunc
	GetAnalysisHandler    http.HandlerFunc

	AnalyzeWebhookHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))
	r.Post("/api/v1/auth/refresh", orNotImplemented(deps.RefreshHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/users/me", orNotImplemented(deps.CurrentUserHandler))
		r.Post("/api/v1/analyze", orNotImplemented(deps.CreateAnalysisHandler))
		r.Get("/api/v1/analyze/{requestID}", orNotImplemented(deps.GetAnalysisHandler))
	})

	// Webhook routes, authenticated by delivery signature rather than JWT
	r.Group(func(r chi.Router) {
		r.Use(deps.WebhookVerify.Verify)

		r.Post("/webhooks/dispatch/analyze", orNotImplemented(deps.AnalyzeWebhookHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
