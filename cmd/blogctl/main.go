// Command blogctl is a terminal client for the blog API.
//
//	blogctl -api http://localhost:5000
//
// BLOG_API_URL and BLOG_TOKEN (from the environment or a .env file) supply
// the defaults for -api and -token.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/sakif/blog-platform/internal/client"
	"github.com/sakif/blog-platform/internal/view"
)

func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", envOr("BLOG_API_URL", "http://localhost:5000"), "base URL of the blog API")
	token := flag.String("token", os.Getenv("BLOG_TOKEN"), "bearer token to start with")
	verbose := flag.Bool("v", false, "log client failures to stderr")
	flag.Parse()

	level := slog.LevelError
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	api := client.New(*apiURL, client.WithToken(*token))
	store := client.NewStore(api)

	app, err := view.New(store, api, os.Stdin, os.Stdout, view.WithLogger(logger))
	if err != nil {
		logger.Error("failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Ctrl+C keeps its default behaviour and ends the process, even while
	// waiting for input.
	if err := app.Run(context.Background()); err != nil {
		logger.Error("input error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
