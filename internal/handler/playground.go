package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/codeforge/internal/auth"
	"github.com/sakif/codeforge/internal/language"
	"github.com/sakif/codeforge/internal/model"
	"github.com/sakif/codeforge/internal/service"
)

// PageHandler renders the HTML pages. Templates are parsed once at
// construction — parsing is the expensive part, execution is cheap.
type PageHandler struct {
	templates *template.Template
	mapper    *language.Mapper
	users     *service.AuthService
	logger    *slog.Logger
}

// NewPageHandler parses the page templates from templateDir.
// base.html defines the frame; playground.html and login.html fill its
// "content" block.
func NewPageHandler(templateDir string, mapper *language.Mapper, users *service.AuthService, logger *slog.Logger) (*PageHandler, error) {
	tmpl, err := template.ParseFiles(
		filepath.Join(templateDir, "base.html"),
		filepath.Join(templateDir, "playground.html"),
		filepath.Join(templateDir, "login.html"),
	)
	if err != nil {
		return nil, err
	}

	return &PageHandler{
		templates: tmpl,
		mapper:    mapper,
		users:     users,
		logger:    logger,
	}, nil
}

// HandlePlayground serves the playground view.
//
// HTTP: GET /
// Auth: RequireAuthPage — a visitor without a session marker was already
// redirected to /login before this handler ran. The handler itself can
// therefore assume a userID in the context.
func (h *PageHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	// Best effort: the page renders without the profile if the lookup
	// fails (the record could have been deleted under a live session).
	var user *model.User
	if u, err := h.users.GetUserByID(r.Context(), userID); err == nil {
		user = u
	}

	data := map[string]any{
		"Title":     "CodeForge — Code Execution Playground",
		"Languages": h.mapper.Labels(),
		"User":      user,
	}

	h.render(w, "base", data)
}

// HandleLogin serves the sign-in page. Public — it is where the
// playground's access guard sends session-less visitors.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Title": "CodeForge — Sign in",
		"Login": true,
	}

	h.render(w, "base", data)
}

func (h *PageHandler) render(w http.ResponseWriter, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
