package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/natthaphon/secretkeeper/internal/metrics"
	"github.com/natthaphon/secretkeeper/internal/middleware"
	"github.com/natthaphon/secretkeeper/internal/repository"
	"github.com/natthaphon/secretkeeper/internal/view"
)

// submitForm is the secret submission payload.
type submitForm struct {
	Secret string `validate:"required"`
}

// SecretsHandler serves the protected secret routes. It only runs behind
// the authorization gate, so the request context always carries the
// resolved identity.
type SecretsHandler struct {
	users    repository.UserRepository
	renderer *view.Renderer
	metrics  *metrics.Collector
	validate *validator.Validate
	logger   *zerolog.Logger
}

// NewSecretsHandler creates a SecretsHandler.
func NewSecretsHandler(
	users repository.UserRepository,
	renderer *view.Renderer,
	collector *metrics.Collector,
	logger *zerolog.Logger,
) *SecretsHandler {
	return &SecretsHandler{
		users:    users,
		renderer: renderer,
		metrics:  collector,
		validate: validator.New(),
		logger:   logger,
	}
}

// ListSecrets renders the aggregate view of all submitted secrets. Only
// identities with a present secret are passed to the renderer, and only
// their secret field is exposed.
// GET /secrets
func (h *SecretsHandler) ListSecrets(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsersWithSecrets(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list secrets")
		h.renderer.RenderError(w, http.StatusInternalServerError, "Could not load secrets.")
		return
	}

	secrets := make([]string, 0, len(users))
	for _, user := range users {
		secrets = append(secrets, user.Secret)
	}

	h.renderer.Render(w, "secrets.html", map[string]any{"Secrets": secrets})
}

// ShowSubmit renders the submission form.
// GET /submit
func (h *SecretsHandler) ShowSubmit(w http.ResponseWriter, r *http.Request) {
	h.renderer.Render(w, "submit.html", nil)
}

// SubmitSecret overwrites the caller's secret with the submitted value. A
// store failure is surfaced as a visible error, not silently dropped.
// POST /submit
func (h *SecretsHandler) SubmitSecret(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		http.Redirect(w, r, loginPath, http.StatusFound)
		return
	}

	form := submitForm{Secret: r.PostFormValue("secret")}
	if err := h.validate.Struct(form); err != nil {
		h.renderer.Render(w, "submit.html", map[string]string{"Error": "A secret is required."})
		return
	}

	if _, err := h.users.UpdateSecret(r.Context(), user.ID.Hex(), form.Secret); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.renderer.RenderError(w, http.StatusNotFound, "No such user.")
			return
		}

		h.logger.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to store secret")
		h.renderer.RenderError(w, http.StatusInternalServerError, "Could not save your secret.")
		return
	}

	h.metrics.RecordSecretUpdated()
	http.Redirect(w, r, secretsPath, http.StatusFound)
}
