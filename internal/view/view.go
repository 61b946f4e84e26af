// Package view renders the HTML pages. It is a thin collaborator: it
// receives a view name and a data payload from the handlers and owns no
// protocol or state-machine behavior.
package view

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates.
type Renderer struct {
	templates *template.Template
	logger    *zerolog.Logger
}

// NewRenderer parses the embedded templates. The template set is embedded
// at build time, so a parse failure is a programming error and panics.
func NewRenderer(logger *zerolog.Logger) *Renderer {
	return &Renderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
		logger:    logger,
	}
}

// Render writes the named page with the given payload.
func (r *Renderer) Render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

// RenderError writes the error page with the given status and message.
func (r *Renderer) RenderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.templates.ExecuteTemplate(w, "error.html", map[string]string{"Message": message}); err != nil {
		r.logger.Error().Err(err).Msg("failed to render error template")
	}
}
