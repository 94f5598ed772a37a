// Package token implements issuing and verifying the signed bearer tokens
// used by both graphbook services. Tokens are stateless: nothing is stored,
// the signature over the claim set is the whole credential.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lewisdbentley/graphbook/errors"
)

// Claims is the payload carried by a bearer token.
// No expiry is set: a token stays valid for as long as the signing
// key stays the same.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"id"`
	jwt.RegisteredClaims
}

// Service signs and verifies bearer tokens with a process-wide secret.
// The secret is startup configuration and is never rotated during the
// process lifetime.
type Service struct {
	secret []byte
	now    func() time.Time
}

// NewService creates a token service. The secret must be non-empty.
func NewService(secret []byte) (*Service, error) {
	if len(secret) == 0 {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "TokenService", "NewService",
			"signing secret is required")
	}
	return &Service{secret: secret, now: time.Now}, nil
}

// Issue signs a token for the given user. The signature is deterministic
// for a fixed claim set and signing key.
func (s *Service) Issue(username, userID string) (string, error) {
	claims := Claims{
		Username: username,
		UserID:   userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", errors.WrapFatal(err, "TokenService", "Issue", "sign claims")
	}
	return signed, nil
}

// Verify parses and checks a token string and returns its claims.
// A malformed payload, a signature mismatch, or an unexpected signing
// method all fail with an invalid-token error.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidToken, "TokenService", "Verify",
			"parse token")
	}
	if !tok.Valid || claims.UserID == "" {
		return nil, errors.WrapInvalid(errors.ErrInvalidToken, "TokenService", "Verify",
			"validate claims")
	}
	return claims, nil
}
