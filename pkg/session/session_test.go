package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user",
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestAuthorization(t *testing.T) {
	require.Equal(t, "Bearer abc", (&Session{AccessToken: "abc"}).Authorization())
	require.Equal(t, "Token abc", (&Session{TokenType: "Token", AccessToken: "abc"}).Authorization())
}

func TestExpiresAtPrefersTokenClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := &Session{
		AccessToken: signedToken(t, exp),
		ExpiresIn:   time.Minute,
		CreatedAt:   time.Now(),
	}

	got, ok := s.ExpiresAt()
	require.True(t, ok)
	require.True(t, exp.Equal(got))
}

func TestExpiresAtFallsBackToExpiresIn(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := &Session{AccessToken: "opaque", ExpiresIn: 24 * time.Hour, CreatedAt: created}

	got, ok := s.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, created.Add(24*time.Hour), got)

	_, ok = (&Session{AccessToken: "opaque"}).ExpiresAt()
	require.False(t, ok)
}

func TestValid(t *testing.T) {
	now := time.Now()

	var missing *Session
	require.False(t, missing.Valid(now))
	require.False(t, (&Session{}).Valid(now))
	require.True(t, (&Session{AccessToken: "opaque"}).Valid(now))
	require.True(t, (&Session{AccessToken: signedToken(t, now.Add(time.Hour))}).Valid(now))
	require.False(t, (&Session{AccessToken: signedToken(t, now.Add(-time.Hour))}).Valid(now))
}
