// Package handler contains the HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, JSON body)
// 2. Call exactly one service operation
// 3. Write the HTTP response through writeJSON / writeError
//
// Handlers hold no business logic; they are the glue between HTTP and the
// service layer.
package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

// The templates are compiled into the binary, so the server runs from any
// working directory.
//
//go:embed templates/*.html
var templateFS embed.FS

// HomeHandler renders the public landing page and answers health checks.
// Templates are parsed once at startup and reused for every request.
type HomeHandler struct {
	templates    *template.Template
	clientOrigin string
	logger       *slog.Logger
}

// NewHomeHandler parses base.html and home.html together: base defines the
// page shell with a {{template "content" .}} placeholder and home fills it.
func NewHomeHandler(clientOrigin string, logger *slog.Logger) (*HomeHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/home.html")
	if err != nil {
		return nil, err
	}
	return &HomeHandler{templates: tmpl, clientOrigin: clientOrigin, logger: logger}, nil
}

// HandleHome serves the landing page.
//
// HTTP: GET /
func (h *HomeHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title":        "ProDevHub",
		"ClientOrigin": h.clientOrigin,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func (h *HomeHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
