// Package session models an authenticated API session and persists it between
// process runs.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNotFound is returned when no session is stored for a profile.
	ErrNotFound = errors.New("session not found")

	// ErrUnknownEngine is returned by Open for an unsupported storage engine.
	ErrUnknownEngine = errors.New("unknown session storage engine")
)

// Session holds the tokens returned by a successful login.
type Session struct {
	TokenType     string        `json:"token_type"`
	AccessToken   string        `json:"access_token"`
	RefreshToken  string        `json:"refresh_token"`
	DeviceToken   string        `json:"device_token"`
	AccountNumber string        `json:"account_number,omitempty"`
	ExpiresIn     time.Duration `json:"expires_in"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Authorization returns the value of the Authorization header for the session.
func (s *Session) Authorization() string {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return tokenType + " " + s.AccessToken
}

// ExpiresAt returns when the access token expires. The expiry claim of the
// token is preferred; otherwise it is derived from ExpiresIn. The boolean is
// false when neither is known.
func (s *Session) ExpiresAt() (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time, true
	}

	if s.ExpiresIn > 0 && !s.CreatedAt.IsZero() {
		return s.CreatedAt.Add(s.ExpiresIn), true
	}

	return time.Time{}, false
}

// Valid reports whether the session has an access token that has not expired at now.
// A token whose expiry is unknown is considered valid.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}

	expiresAt, ok := s.ExpiresAt()
	if !ok {
		return true
	}
	return now.Before(expiresAt)
}
