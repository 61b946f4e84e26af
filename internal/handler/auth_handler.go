// Package handler wires the HTTP surface: login, registration, the
// federated handshake endpoints, and the protected secret routes.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/auth"
	"github.com/natthaphon/secretkeeper/internal/metrics"
	"github.com/natthaphon/secretkeeper/internal/model"
	"github.com/natthaphon/secretkeeper/internal/session"
	"github.com/natthaphon/secretkeeper/internal/view"
)

const (
	loginPath    = "/login"
	registerPath = "/register"
	secretsPath  = "/secrets"
	homePath     = "/"
)

// credentialsForm is the login and registration payload.
type credentialsForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// AuthHandler serves the authentication routes. Credential and provider
// failures are recovered into redirects at this boundary; they never reach
// the client as raw faults.
type AuthHandler struct {
	local     *auth.LocalAuthenticator
	federated *auth.FederatedAuthenticator
	sessions  *session.Manager
	renderer  *view.Renderer
	metrics   *metrics.Collector
	validate  *validator.Validate
	logger    *zerolog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	local *auth.LocalAuthenticator,
	federated *auth.FederatedAuthenticator,
	sessions *session.Manager,
	renderer *view.Renderer,
	collector *metrics.Collector,
	logger *zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		local:     local,
		federated: federated,
		sessions:  sessions,
		renderer:  renderer,
		metrics:   collector,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Home renders the landing page.
// GET /
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "home.html", nil)
}

// ShowLogin renders the login form.
// GET /login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "login.html", nil)
}

// ShowRegister renders the registration form.
// GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "register.html", nil)
}

// Login runs the local authenticator and establishes a session.
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := credentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validate.Struct(form); err != nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	user, err := h.local.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.Error().Err(err).Msg("local authentication failed")
		}
		h.metrics.RecordLoginFailure("local")
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	h.metrics.RecordLoginSuccess("local")
	h.establishSession(w, r, user, secretsPath)
}

// Register creates a local identity and establishes a session.
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := credentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validate.Struct(form); err != nil {
		http.Redirect(w, r, registerPath, http.StatusFound)
		return
	}

	user, err := h.local.Register(r.Context(), form.Username, form.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrUserAlreadyExists) {
			h.logger.Error().Err(err).Msg("registration failed")
		}
		http.Redirect(w, r, registerPath, http.StatusFound)
		return
	}

	h.metrics.RecordRegistration()
	h.establishSession(w, r, user, secretsPath)
}

// BeginFederated starts the federated handshake for the given provider and
// redirects the user to the provider's authorization endpoint.
func (h *AuthHandler) BeginFederated(p auth.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := h.federated.Begin(p)
		if err != nil {
			h.logger.Error().Err(err).Str("provider", p.Name()).Msg("failed to begin federated login")
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// FederatedCallback completes the handshake. On success the resolved
// identity is bound to a session and the user proceeds to the protected
// resource; every failure routes back to the login entry point.
func (h *AuthHandler) FederatedCallback(p auth.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		user, err := h.federated.Callback(
			r.Context(),
			p,
			query.Get("code"),
			query.Get("state"),
			query.Get("error"),
		)
		if err != nil {
			if errors.Is(err, auth.ErrProviderError) {
				h.logger.Error().Err(err).Str("provider", p.Name()).Msg("federated callback failed")
			} else {
				h.logger.Warn().Err(err).Str("provider", p.Name()).Msg("federated login denied")
			}
			h.metrics.RecordLoginFailure(p.Name())
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		h.metrics.RecordLoginSuccess(p.Name())
		h.establishSession(w, r, user, secretsPath)
	}
}

// Logout destroys the current session. Logout always completes: a missing
// session is a no-op and the cookie is cleared regardless.
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.TokenFromRequest(r); token != "" {
		h.sessions.Destroy(token)
	}

	h.sessions.Clear(w)
	http.Redirect(w, r, homePath, http.StatusFound)
}

// establishSession binds the identity to a new session and redirects.
func (h *AuthHandler) establishSession(w http.ResponseWriter, r *http.Request, user *model.User, target string) {
	s, err := h.sessions.Create(user)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	h.sessions.Attach(w, s)
	http.Redirect(w, r, target, http.StatusFound)
}
