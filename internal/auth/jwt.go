// Package auth provides token issuing, password hashing, the bearer-token
// middleware and the GitHub OAuth provider for the API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs credentials to /api/auth/register or /api/auth/login
//  2. Server returns a short-lived access token and a longer-lived refresh token
//  3. Client sends "Authorization: Bearer <access token>" on every API call
//  4. Middleware validates the JWT and puts the userID in the request context
//  5. When the access token expires the client trades the refresh token at
//     /api/auth/refresh for a fresh pair
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims (data) → {"sub":"userID","exp":1234567890,"typ":"access"}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// TOKEN TYPES:
// The same secret signs three kinds of token. A "typ" claim tells them apart,
// so a refresh token can never be replayed as an access token (and an OAuth
// state token can never be used for either).
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "prodevhub"

// Default lifetimes, used when the caller passes zero.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	stateTTL          = 10 * time.Minute
)

// TokenType is the value of the "typ" claim.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
	TokenState   TokenType = "github_state"
)

// ErrTokenExpired lets callers tell an expired token from a forged one.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetimes.
// Zero lifetimes fall back to DefaultAccessTTL and DefaultRefreshTTL.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// claims is the JWT payload: the registered claims plus our token type.
// "sub" (Subject) carries the internal user ID.
type claims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"typ"`
}

// Generate issues an access token for userID.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.sign(userID, TokenAccess, s.accessTTL)
}

// GenerateRefresh issues a refresh token for userID.
func (s *TokenService) GenerateRefresh(userID string) (string, error) {
	return s.sign(userID, TokenRefresh, s.refreshTTL)
}

// GenerateState issues the short-lived OAuth "state" value that binds a
// GitHub authorization round trip to the user who started it.
func (s *TokenService) GenerateState(userID string) (string, error) {
	return s.sign(userID, TokenState, stateTTL)
}

// GenerateWithDuration creates an access token with a custom expiry.
// Used in tests to produce already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.sign(userID, TokenAccess, d)
}

// AccessTTL reports how long issued access tokens live.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) sign(userID string, typ TokenType, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Type: typ,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate verifies an access token and returns its userID.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	return s.parse(tokenStr, TokenAccess)
}

// ValidateRefresh verifies a refresh token and returns its userID.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	return s.parse(tokenStr, TokenRefresh)
}

// ValidateState verifies an OAuth state token and returns its userID.
func (s *TokenService) ValidateState(tokenStr string) (string, error) {
	return s.parse(tokenStr, TokenState)
}

// parse runs the checks every token type shares.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired, and carries an expiry at all
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents the "alg: none" confusion attack)
//
// and then ours: the typ claim must be the one the caller expects.
func (s *TokenService) parse(tokenStr string, want TokenType) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
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

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", errors.New("auth: invalid token claims")
	}
	if c.Type != want {
		return "", fmt.Errorf("auth: expected %s token, got %q", want, c.Type)
	}
	if c.Subject == "" {
		return "", errors.New("auth: token has no subject")
	}

	return c.Subject, nil
}
