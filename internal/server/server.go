// Package server is the composition root: it wires the repository,
// services, handlers, and middleware together and owns the HTTP
// lifecycle. Nothing here contains business logic — it only decides
// which URL runs which handler behind which guard.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codeforge/internal/auth"
	"github.com/sakif/codeforge/internal/execservice"
	"github.com/sakif/codeforge/internal/handler"
	"github.com/sakif/codeforge/internal/language"
	"github.com/sakif/codeforge/internal/middleware"
	"github.com/sakif/codeforge/internal/playground"
	sqliteRepo "github.com/sakif/codeforge/internal/repository/sqlite"
	"github.com/sakif/codeforge/internal/service"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port        int
	TemplateDir string
	StaticDir   string
	DBPath      string

	// ExecutorURL is the base URL of the code-execution service, e.g.
	// "http://localhost:8001". Required — the playground is pointless
	// without it.
	ExecutorURL string

	// JWTSecret signs session tokens. Required, at least 16 characters.
	JWTSecret string

	// GitHub OAuth App credentials. Optional; when empty, GitHub
	// sign-in is disabled and only email+password works.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server owns the router and the resources that need closing on
// shutdown.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	sessions *playground.Sessions
}

// New builds the full dependency graph and the route table.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.ExecutorURL == "" {
		return nil, fmt.Errorf("server: ExecutorURL is required")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires the dependency chain and registers every route.
//
// Route map:
//
//	GET  /                       playground page (session required, else → /login)
//	GET  /login                  login page (public)
//	GET  /static/*               static assets
//	GET  /auth/github/login      start OAuth flow
//	GET  /auth/github/callback   finish OAuth flow
//	POST /auth/register          email+password sign-up
//	POST /auth/login             email+password sign-in
//	POST /auth/logout            end session
//	/api/* (JWT required):
//	  POST   /api/run            trigger a run
//	  GET    /api/run/state      current snapshot
//	  PUT    /api/editor         editor/stdin updates
//	  GET    /api/me             profile
//	  CRUD   /api/snippets       saved snippets
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Shared dependencies ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" && s.config.GitHubClientSecret != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	} else {
		s.logger.Warn("GitHub OAuth not configured; GitHub sign-in disabled")
	}

	mapper := language.Default()
	runner := execservice.NewClient(s.config.ExecutorURL, s.logger)
	s.sessions = playground.NewSessions(runner, mapper, s.logger)

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	snippetService := service.NewSnippetService(s.db, s.logger)

	// === Handlers ===
	pages, err := handler.NewPageHandler(s.config.TemplateDir, mapper, authService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.sessions, s.logger)
	runHandler := handler.NewRunHandler(s.sessions, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)

	// === Static files ===
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	// === Pages ===
	// The playground sits behind the page guard: no session marker means
	// a 303 to /login before the view ever renders.
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuthPage(tokens, "/login"))
		r.Get("/", pages.HandlePlayground)
	})
	s.router.Get("/login", pages.HandleLogin)

	// === Auth endpoints (public) ===
	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
	})

	// === API (JWT required) ===
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Post("/run", runHandler.HandleRun)
		r.Get("/run/state", runHandler.HandleState)
		r.Put("/editor", runHandler.HandleEditor)

		r.Get("/me", authHandler.HandleMe)

		r.Get("/snippets", snippetHandler.HandleList)
		r.Post("/snippets", snippetHandler.HandleCreate)
		r.Get("/snippets/{id}", snippetHandler.HandleGet)
		r.Put("/snippets/{id}", snippetHandler.HandleUpdate)
		r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
	})

	// Liveness probe. Reports the session count so an operator can see
	// whether the process is actually being used before bouncing it.
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","sessions":%d}`, s.sessions.Count())
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests,
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		// Write timeout must outlive the longest run: the /api/run
		// handler blocks for the whole dispatch, and the execution
		// service itself allows runs up to its own timeout.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("executor", s.config.ExecutorURL),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
