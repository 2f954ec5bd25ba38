package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "a-production-secret-value"}))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "data/blog.db", cfg.DatabaseURL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, 168*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"*"}, cfg.CorsAllowedOrigins)
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.StrictPostOwnership)
	assert.False(t, cfg.GitHubEnabled())
	assert.Equal(t, "http://localhost:5000/api/auth/github/callback", cfg.GitHubCallbackURL)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":                  "8081",
		"MONGODB_URI":           "file:blog.db",
		"JWT_SECRET":            "a-production-secret-value",
		"JWT_TTL":               "30m",
		"UPLOAD_DIR":            "/var/blog/uploads",
		"NODE_ENV":              "development",
		"CORS_ALLOWED_ORIGINS":  "http://a.test, http://b.test,",
		"STRICT_POST_OWNERSHIP": "true",
		"GITHUB_CLIENT_ID":      "id",
		"GITHUB_CLIENT_SECRET":  "secret",
	}))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, "file:blog.db", cfg.DatabaseURL, "MONGODB_URI is accepted as an alias")
	assert.Equal(t, 30*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "/var/blog/uploads", cfg.UploadDir)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsAllowedOrigins)
	assert.True(t, cfg.StrictPostOwnership)
	assert.True(t, cfg.GitHubEnabled())
}

func TestFromEnv_DatabaseURLWinsOverAlias(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"DATABASE_URL": "primary.db",
		"MONGODB_URI":  "alias.db",
		"JWT_SECRET":   "a-production-secret-value",
	}))
	require.NoError(t, err)
	assert.Equal(t, "primary.db", cfg.DatabaseURL)
}

func TestFromEnv_Secret(t *testing.T) {
	_, err := FromEnv(env(map[string]string{}))
	assert.Error(t, err, "production requires JWT_SECRET")

	cfg, err := FromEnv(env(map[string]string{"APP_ENV": "development"}))
	require.NoError(t, err)
	assert.Equal(t, devSecret, cfg.JWTSecret)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"non-numeric port":  {"PORT": "abc"},
		"negative port":     {"PORT": "-1"},
		"bad duration":      {"JWT_TTL": "forever"},
		"bad strict switch": {"STRICT_POST_OWNERSHIP": "maybe"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			vars["JWT_SECRET"] = "a-production-secret-value"
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}
