package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrSessionInvalid = errors.New("session token invalid")

// NewSessionToken signs a HS256 token carrying the user ID as subject.
// It is what the session cookie holds.
func NewSessionToken(userID string, secret []byte, lifetime time.Duration) (string, error) {
	now := time.Now()

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
	})

	return t.SignedString(secret)
}

// ParseSessionToken validates a session token and returns the user ID.
func ParseSessionToken(tokenStr string, secret []byte) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", ErrSessionInvalid)
	}

	return claims.Subject, nil
}
