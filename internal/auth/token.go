package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued credential stays valid.
const TokenTTL = 24 * time.Hour

// ErrInvalidToken is returned for any token that fails verification.
// The reason (malformed, expired, tampered) is deliberately not surfaced.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the verified subject carried inside a credential.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type tokenClaims struct {
	jwt.RegisteredClaims
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Tokens signs and verifies bearer credentials.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

// NewTokens creates a credential signer/verifier with the given secret.
func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Sign issues a signed token for the identity, valid for TokenTTL.
func (t *Tokens) Sign(id int64, username string) (string, error) {
	now := t.now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
		ID:       id,
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify parses and validates a token, returning the embedded identity.
// Any failure maps to ErrInvalidToken.
func (t *Tokens) Verify(token string) (Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	if claims.ID == 0 || claims.Username == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{ID: claims.ID, Username: claims.Username}, nil
}
