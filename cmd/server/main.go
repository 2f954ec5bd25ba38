// Package main is the entry point for the blog API server.
//
// The main package stays minimal. Its job is to:
//  1. Read configuration (environment, optionally from a .env file)
//  2. Create the logger and make sure data directories exist
//  3. Build the server and run it until a shutdown signal
//
// All actual logic lives in internal/server and the packages it wires.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/blog-platform/internal/config"
	"github.com/sakif/blog-platform/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Development gets readable text at Debug; everything else gets JSON at
	// Info for log collectors.
	var logger *slog.Logger
	if cfg.IsDevelopment() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	slog.SetDefault(logger)

	// === 3. ENSURE DIRECTORIES ===
	// os.MkdirAll is `mkdir -p`. In-memory and URI-style databases have no
	// directory to create.
	dirs := []string{cfg.UploadDir}
	if cfg.DatabaseURL != ":memory:" && !strings.HasPrefix(cfg.DatabaseURL, "file:") {
		dirs = append(dirs, filepath.Dir(cfg.DatabaseURL))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	if !cfg.GitHubEnabled() {
		logger.Info("GITHUB_CLIENT_ID not set, GitHub sign-in disabled")
	}

	// === 4. CREATE AND START THE SERVER ===
	// A database that cannot be opened is fatal.
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
