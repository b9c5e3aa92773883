// internal/api/handler/web/handler.go
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/newthinker/folio/internal/session"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// Handler provides web UI handlers with template rendering
type Handler struct {
	page     *template.Template
	panel    *template.Template
	registry *session.Registry
	baseCtx  context.Context
	logger   *zap.Logger
	secure   bool
}

// Options configures a Handler.
type Options struct {
	// TemplatesDir overrides the embedded templates when set.
	TemplatesDir string
	// Templates takes precedence over TemplatesDir.
	Templates fs.FS
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	Logger       *zap.Logger
}

// NewHandler creates a web handler serving sessions from registry.
// Checks started from the page run under baseCtx.
func NewHandler(baseCtx context.Context, registry *session.Registry, opts Options) (*Handler, error) {
	fsys := opts.Templates
	if fsys == nil && opts.TemplatesDir != "" {
		fsys = os.DirFS(opts.TemplatesDir)
	}
	if fsys == nil {
		fsys = embeddedTemplates()
	}

	// Parse layout first, then the page template
	page, err := template.ParseFS(fsys, "layout.html", "index.html", "panel.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page templates: %w", err)
	}
	panel, err := template.ParseFS(fsys, "panel.html")
	if err != nil {
		return nil, fmt.Errorf("parsing panel template: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Handler{
		page:     page,
		panel:    panel,
		registry: registry,
		baseCtx:  baseCtx,
		logger:   logger,
		secure:   opts.SecureCookie,
	}, nil
}

// render executes the named template with the given data
func (h *Handler) render(w http.ResponseWriter, tmpl *template.Template, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// embeddedTemplates returns the templates compiled into the binary.
func embeddedTemplates() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
