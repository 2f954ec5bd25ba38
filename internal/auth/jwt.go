// Package auth provides bearer-token authentication for the blog API.
//
// AUTHENTICATION FLOW:
//  1. POST /api/auth/register or /api/auth/login verifies credentials
//  2. The server issues a signed JWT whose "sub" claim is the user ID
//  3. The client sends it back as "Authorization: Bearer <token>"
//  4. RequireAuth validates the token, loads the user and stores it in the
//     request context for the handler
//
// The signature is HMAC-SHA256 over header and payload, so the server verifies
// a token with nothing but the secret. The user lookup in step 4 is what makes
// a token for a deleted account stop working.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "blog-platform"

	// DefaultTokenTTL is how long an issued token stays valid.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

// ErrTokenExpired is returned by Validate for a well-formed token past its expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
//
// WHY HS256?
// The API is the only party that issues and checks tokens, so a shared HMAC
// secret is enough and there is no key pair to distribute. The trade-off is
// that anyone holding JWT_SECRET can mint tokens, which is why the secret
// comes from the environment and has a minimum length.
//
// TOKEN LAYOUT (payload, after base64 decoding):
//
//	{
//	  "iss": "blog-platform",
//	  "sub": "<user id>",
//	  "iat": 1700000000,
//	  "exp": 1700604800
//	}
//
// Nothing else is stored: the username and role are read from the database
// on every request, so a role change applies without reissuing tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// A ttl of zero means DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Generate signs a token for userID with the service's lifetime.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration signs a token with a custom expiry.
// Tests use a negative duration to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token and returns its subject (the user ID).
//
// Only HS256 is accepted. Without jwt.WithValidMethods a client could present
// an "alg: none" token and skip the signature check.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	c := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenStr,
		c,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
