package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret")

	signed, err := tokens.Sign(42, "alice")
	require.NoError(t, err)

	identity, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, int64(42), identity.ID)
	require.Equal(t, "alice", identity.Username)
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("test-secret")

	issued := time.Now().Add(-TokenTTL - time.Minute)
	tokens.now = func() time.Time { return issued }
	signed, err := tokens.Sign(1, "alice")
	require.NoError(t, err)

	tokens.now = time.Now
	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a").Sign(1, "alice")
	require.NoError(t, err)

	_, err = NewTokens("secret-b").Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenTampered(t *testing.T) {
	tokens := NewTokens("test-secret")
	signed, err := tokens.Sign(1, "alice")
	require.NoError(t, err)

	parts := strings.Split(signed, ".")
	require.Len(t, parts, 3)
	flipped := byte('A')
	if parts[1][0] == 'A' {
		flipped = 'B'
	}
	parts[1] = string(flipped) + parts[1][1:]

	_, err = tokens.Verify(strings.Join(parts, "."))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	tokens := NewTokens("test-secret")

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		ID:       1,
		Username: "alice",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMissingIdentity(t *testing.T) {
	tokens := NewTokens("test-secret")

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	tokens := NewTokens("test-secret")
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken)
	}
}
