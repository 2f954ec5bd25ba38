// Package config loads server configuration from the environment.
//
// A .env file in the working directory is read first when present; real
// environment variables always win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devSecret is only accepted when APP_ENV=development.
const devSecret = "development-secret-change-me"

// Config holds every setting the server reads at startup.
type Config struct {
	Port               int
	DatabaseURL        string
	JWTSecret          string
	JWTTTL             time.Duration
	UploadDir          string
	Env                string
	CorsAllowedOrigins []string

	// StrictPostOwnership applies the author-or-admin rule to updates as
	// well as deletes.
	StrictPostOwnership bool

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// Load reads .env (if any) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, which keeps tests away from
// the real process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		DatabaseURL:        get("DATABASE_URL", get("MONGODB_URI", "data/blog.db")),
		JWTSecret:          get("JWT_SECRET", ""),
		UploadDir:          get("UPLOAD_DIR", "uploads"),
		Env:                get("APP_ENV", get("NODE_ENV", "production")),
		CorsAllowedOrigins: splitCSV(get("CORS_ALLOWED_ORIGINS", "*")),
		GitHubClientID:     get("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: get("GITHUB_CLIENT_SECRET", ""),
	}

	var err error
	if cfg.Port, err = strconv.Atoi(get("PORT", "5000")); err != nil || cfg.Port <= 0 {
		return Config{}, fmt.Errorf("config: invalid PORT %q", getenv("PORT"))
	}
	if cfg.JWTTTL, err = time.ParseDuration(get("JWT_TTL", "168h")); err != nil || cfg.JWTTTL <= 0 {
		return Config{}, fmt.Errorf("config: invalid JWT_TTL %q", getenv("JWT_TTL"))
	}
	if cfg.StrictPostOwnership, err = strconv.ParseBool(get("STRICT_POST_OWNERSHIP", "false")); err != nil {
		return Config{}, fmt.Errorf("config: invalid STRICT_POST_OWNERSHIP %q", getenv("STRICT_POST_OWNERSHIP"))
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return Config{}, errors.New("config: JWT_SECRET is required")
		}
		cfg.JWTSecret = devSecret
	}

	cfg.GitHubCallbackURL = get("GITHUB_CALLBACK_URL",
		fmt.Sprintf("http://localhost:%d/api/auth/github/callback", cfg.Port))

	return cfg, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
