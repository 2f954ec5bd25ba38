// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// New is the composition root:
//
//	sqlite.DB → repositories → services → handlers → chi routes
//
// Each layer only receives what it needs: services get repository
// interfaces, handlers get services.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/handler"
	"github.com/sakif/blog-platform/internal/middleware"
	sqliteRepo "github.com/sakif/blog-platform/internal/repository/sqlite"
	"github.com/sakif/blog-platform/internal/service"
)

// Server represents the HTTP server and the resources it owns.
// The database is closed when Start returns, or by Close.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// Option adjusts how New builds the server.
type Option func(*options)

type options struct {
	passwords *auth.PasswordService
	github    handler.GitHubSignIn
}

// WithPasswordService replaces the default bcrypt cost. Tests use it to keep
// hashing fast.
func WithPasswordService(ps *auth.PasswordService) Option {
	return func(o *options) { o.passwords = ps }
}

// WithGitHub overrides the GitHub sign-in provider built from config.
func WithGitHub(gh handler.GitHubSignIn) Option {
	return func(o *options) { o.github = gh }
}

// New opens the database and builds the router. A database that cannot be
// opened or migrated is an error; callers treat it as fatal.
func New(cfg config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	o := options{passwords: auth.NewPasswordService()}
	if cfg.GitHubEnabled() {
		o.github = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sqliteRepo.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if err := s.setupRoutes(o); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes configures middleware and routes.
//
//	GET    /                           health text
//	GET    /health                     {"status":"ok"}
//	GET    /uploads/*                  stored uploads
//	POST   /api/auth/register
//	POST   /api/auth/login
//	GET    /api/auth/me                bearer
//	GET    /api/auth/github/login
//	GET    /api/auth/github/callback
//	GET    /api/posts                  ?page&limit&category&q
//	GET    /api/posts/{id}             id or slug
//	POST   /api/posts                  bearer
//	PUT    /api/posts/{id}             bearer
//	DELETE /api/posts/{id}             bearer, author or admin
//	POST   /api/posts/{id}/comments    bearer
//	GET    /api/categories
//	POST   /api/categories
//	POST   /api/uploads                multipart "file"
//
// Middleware runs in the order it is added: RequestID must precede the
// logger so every line carries the id.
func (s *Server) setupRoutes(o options) error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.JWTTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authService := service.NewAuthService(s.db.Users(), tokens, o.passwords, s.logger)
	postService := service.NewPostService(s.db.Posts(), s.db.Categories(),
		service.PostPolicy{StrictOwnership: s.config.StrictPostOwnership}, s.logger)
	categoryService := service.NewCategoryService(s.db.Categories(), s.logger)
	uploadService := service.NewUploadService(s.config.UploadDir, s.logger)

	authHandler := handler.NewAuthHandler(authService, o.github, s.logger)
	postHandler := handler.NewPostHandler(postService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	uploadHandler := handler.NewUploadHandler(uploadService, s.logger)

	requireAuth := auth.RequireAuth(tokens, authService, s.logger)

	s.router.NotFound(handler.NotFound)
	s.router.Get("/", handler.Root)
	s.router.Get("/health", handler.Health)

	s.router.Handle(service.UploadURLPrefix+"*", uploadFiles(s.config.UploadDir))

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.HandleList)
			r.Get("/{id}", postHandler.HandleGet)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.HandleCreate)
				r.Put("/{id}", postHandler.HandleUpdate)
				r.Delete("/{id}", postHandler.HandleDelete)
				r.Post("/{id}/comments", postHandler.HandleAddComment)
			})
		})

		r.Get("/categories", categoryHandler.HandleList)
		r.Post("/categories", categoryHandler.HandleCreate)

		r.Post("/uploads", uploadHandler.HandleUpload)
	})

	return nil
}

// Start serves until SIGINT/SIGTERM and then shuts down gracefully: stop
// accepting connections, give in-flight requests 30s, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DatabaseURL),
			slog.String("env", s.config.Env),
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

// uploadFiles serves stored uploads. Anything that is not a regular file,
// the upload directory itself included, gets the JSON 404 instead of a listing.
func uploadFiles(dir string) http.Handler {
	files := http.StripPrefix(service.UploadURLPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + strings.TrimPrefix(r.URL.Path, service.UploadURLPrefix))
		info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name)))
		if err != nil || !info.Mode().IsRegular() {
			handler.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
