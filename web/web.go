// Package web serves the signup and signin pages. The forms mirror the
// server-side validation rules so most mistakes are caught before a
// request is sent.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Handlers renders the account pages.
type Handlers struct {
	templates *template.Template
	logger    *zap.Logger
}

// NewHandlers parses the embedded page templates.
func NewHandlers(logger *zap.Logger) (*Handlers, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handlers{templates: templates, logger: logger}, nil
}

// HandleSignupPage serves the account creation form.
func (h *Handlers) HandleSignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html")
}

// HandleSigninPage serves the login form.
func (h *Handlers) HandleSigninPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signin.html")
}

func (h *Handlers) render(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, nil); err != nil {
		h.logger.Error("failed to render page", zap.String("template", name), zap.Error(err))
	}
}
