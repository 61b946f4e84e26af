package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/auth"
	"github.com/natthaphon/secretkeeper/internal/metrics"
	"github.com/natthaphon/secretkeeper/internal/middleware"
	"github.com/natthaphon/secretkeeper/internal/session"
)

// RouterDeps bundles everything the route layer wires together.
type RouterDeps struct {
	Auth     *AuthHandler
	Secrets  *SecretsHandler
	Sessions *session.Manager

	// Concrete provider implementations, bound to their routes here
	// rather than looked up from a registry.
	Google   auth.Provider
	Facebook auth.Provider

	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	Logger      *zerolog.Logger
}

// NewRouter builds the route table. Protected routes sit behind the
// authorization gate; the credential endpoints carry the per-client rate
// limit.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(deps.Metrics.Middleware())
	r.Use(middleware.RequestLogger(deps.Logger))

	// Public pages.
	r.Get("/", deps.Auth.Home)
	r.Get("/login", deps.Auth.ShowLogin)
	r.Get("/register", deps.Auth.ShowRegister)
	r.Get("/logout", deps.Auth.Logout)

	// Credential endpoints, rate limited per client address.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())
		r.Post("/login", deps.Auth.Login)
		r.Post("/register", deps.Auth.Register)
	})

	// Federated handshake endpoints. The callback paths mirror the
	// provider registrations.
	r.Get("/auth/google", deps.Auth.BeginFederated(deps.Google))
	r.Get("/auth/google/secrets", deps.Auth.FederatedCallback(deps.Google))
	r.Get("/login/federated/facebook", deps.Auth.BeginFederated(deps.Facebook))
	r.Get("/oauth2/redirect/facebook", deps.Auth.FederatedCallback(deps.Facebook))

	// Protected routes behind the authorization gate.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated(deps.Sessions))
		r.Get("/secrets", deps.Secrets.ListSecrets)
		r.Get("/submit", deps.Secrets.ShowSubmit)
		r.Post("/submit", deps.Secrets.SubmitSecret)
	})

	// Operational endpoints.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}
