// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config.Config → sqlite.DB → repositories
//	             → services (auth, session, project, insight)
//	             → handlers → chi routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services. Nothing below this package knows how
// its dependencies were constructed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-multierror"

	"github.com/sakif/prodevhub/internal/ai"
	"github.com/sakif/prodevhub/internal/auth"
	"github.com/sakif/prodevhub/internal/config"
	"github.com/sakif/prodevhub/internal/github"
	"github.com/sakif/prodevhub/internal/handler"
	"github.com/sakif/prodevhub/internal/middleware"
	sqliteRepo "github.com/sakif/prodevhub/internal/repository/sqlite"
	"github.com/sakif/prodevhub/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Deps are the external collaborators. Zero fields are built from the config;
// tests set them to fakes.
type Deps struct {
	Completer ai.Completer
	GitHub    *github.Client
	OAuth     service.GitHubOAuth
	Passwords *auth.PasswordService
}

// Server owns the router and the database connection.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database at cfg.DBPath (creating its directory), applies
// migrations and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	return NewWithDeps(cfg, logger, Deps{})
}

// NewWithDeps is New with some collaborators supplied by the caller.
func NewWithDeps(cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("server: creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("server: opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(deps); err != nil {
		db.Close()
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and mounts every route.
//
// MIDDLEWARE ORDER MATTERS: RequestID first so the logger can print it,
// Recoverer inside the logger so a panic is logged as a 500.
func (s *Server) setupRoutes(deps Deps) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.CORS(s.config.ClientOrigin))

	tokens, err := auth.NewTokenService(s.config.Auth.JWTSecret, s.config.Auth.AccessTokenTTL, s.config.Auth.RefreshTokenTTL)
	if err != nil {
		return err
	}

	completer := deps.Completer
	if completer == nil {
		completer = s.buildCompleter()
	}
	ghClient := deps.GitHub
	if ghClient == nil {
		ghClient = github.NewClient(s.config.GitHub.Token)
	}
	oauth := deps.OAuth
	if oauth == nil && s.config.GitHub.OAuthEnabled() {
		oauth = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	}

	passwords := deps.Passwords
	if passwords == nil {
		passwords = auth.NewPasswordService()
	}

	users := s.db.Users()
	sessions := s.db.Sessions()

	authService := service.NewAuthService(users, tokens, passwords, oauth, s.logger)
	sessionService := service.NewSessionService(sessions, users, s.logger)
	projectService := service.NewProjectService(s.db.Projects(), sessions, s.logger)
	insightService := service.NewInsightService(sessions, users, s.db.Reports(), completer, githubClientFor(ghClient), s.logger)

	homeHandler, err := handler.NewHomeHandler(s.config.ClientOrigin, s.logger)
	if err != nil {
		return fmt.Errorf("creating home handler: %w", err)
	}
	authHandler := handler.NewAuthHandler(authService, s.config.ClientOrigin, s.logger)
	sessionHandler := handler.NewSessionHandler(sessionService, s.logger)
	projectHandler := handler.NewProjectHandler(projectService, s.logger)
	aiHandler := handler.NewAIHandler(insightService, s.logger)
	aiLimiter := middleware.NewUserRateLimiter(s.config.AI.RateLimit)

	s.router.Get("/", homeHandler.HandleHome)
	s.router.Get("/healthz", homeHandler.HandleHealth)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/refresh", authHandler.HandleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/auth/me", authHandler.HandleMe)
			r.Put("/auth/profile", authHandler.HandleUpdateProfile)
			r.Get("/auth/github/connect", authHandler.HandleGitHubConnect)

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", projectHandler.HandleCreate)
				r.Get("/", projectHandler.HandleList)
				r.Put("/{id}", projectHandler.HandleUpdate)
				r.Delete("/{id}", projectHandler.HandleDelete)
				r.Get("/{id}/stats", projectHandler.HandleStats)
			})

			// Static paths are matched before {id}, so "recent" and "stats"
			// never reach the update/delete handlers.
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.HandleCreate)
				r.Get("/", sessionHandler.HandleList)
				r.Get("/recent", sessionHandler.HandleRecent)
				r.Get("/stats", sessionHandler.HandleStats)
				r.Put("/{id}", sessionHandler.HandleUpdate)
				r.Delete("/{id}", sessionHandler.HandleDelete)
			})

			r.Route("/ai", func(r chi.Router) {
				r.Use(aiLimiter.Handler)
				r.Get("/insights", aiHandler.HandleInsights)
				r.Post("/weekly-report", aiHandler.HandleWeeklyReport)
				r.Get("/suggestions", aiHandler.HandleSuggestions)
				r.Post("/chat", aiHandler.HandleChat)
			})

			r.Get("/github/repos", aiHandler.HandleGitHubRepos)
			r.Get("/github/repos/{repo}/commit-activity", aiHandler.HandleGitHubCommitActivity)
		})
	})

	return nil
}

func (s *Server) buildCompleter() ai.Completer {
	if s.config.AI.APIKey == "" {
		s.logger.Warn("OPENAI_API_KEY not set, AI features will report upstream unavailable")
		return ai.Disabled{}
	}
	return ai.NewOpenAI(ai.OpenAIConfig{
		APIKey:  s.config.AI.APIKey,
		BaseURL: s.config.AI.BaseURL,
		Model:   s.config.AI.Model,
	}, s.logger)
}

// githubClientFor adapts *github.Client to the service's per-token factory.
func githubClientFor(base *github.Client) service.GitHubClientFor {
	return func(token string) service.GitHubActivity {
		if token == "" {
			return base
		}
		return base.WithToken(token)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully:
//  1. stop accepting new connections
//  2. give in-flight requests up to 30s to finish
//  3. close the database
//
// Errors from shutdown and from closing the database are both reported.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// AI calls retry with backoff, so responses may take a while.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	var result error
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			result = multierror.Append(result, fmt.Errorf("server: listening: %w", err))
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("server: graceful shutdown: %w", err))
		} else {
			s.logger.Info("server stopped gracefully")
		}
	}

	if err := s.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("server: closing database: %w", err))
	}
	return result
}

// Close releases the database without serving. Used when Start is never called.
func (s *Server) Close() error {
	return s.db.Close()
}
