// Package auth validates the JWT access tokens that callers of the signal API
// present.
//
// AUTHENTICATION FLOW OVERVIEW:
// Tokens are issued by the user service, which shares the HMAC secret with us.
//  1. The client logs in against the user service and receives a JWT.
//  2. It sends that JWT on every signal request, either as
//     "Authorization: Bearer <jwt>" or in a "token" cookie.
//  3. RequireAuth validates it and puts the subject (user ID) in the context.
//
// Authentication only proves the caller holds a valid token. It does NOT check
// that the token's subject matches the user_id in the request body.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"userID","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret, the accepted algorithm and, optionally, the issuer
// tokens must carry.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	issuer string
	ttl    time.Duration
}

// TokenOptions configures a TokenService. Zero values pick the defaults.
type TokenOptions struct {
	// Algorithm is one of HS256 (default), HS384, HS512.
	Algorithm string
	// Issuer, when set, is stamped on generated tokens and required on validated ones.
	Issuer string
	// TTL is the lifetime of generated tokens. Defaults to 15 minutes.
	TTL time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, opts TokenOptions) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}

	method, err := hmacMethod(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &TokenService{
		secret: []byte(secret),
		method: method,
		issuer: opts.Issuer,
		ttl:    ttl,
	}, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		return jwt.SigningMethodHS256, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS512":
		return jwt.SigningMethodHS512, nil
	}
	return nil, fmt.Errorf("auth: unsupported signing algorithm %q", alg)
}

// claims is the JWT payload. We use "sub" (Subject) to store the user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate creates a signed JWT for the given user ID with the configured TTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, s.ttl)
}

// GenerateWithDuration creates a token with a custom lifetime.
// Negative durations produce already-expired tokens, which tests rely on.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(s.method, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string, returning the user ID (subject).
//
// SECURITY CHECKS:
//   - Only the configured HMAC algorithm is accepted ("alg":"none" and
//     algorithm-switching attacks are rejected).
//   - Expiry is required and enforced.
//   - If an issuer is configured it must match.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		parserOpts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
