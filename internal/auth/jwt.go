// Package auth resolves the HabitLens user of an HTTP request: a bearer token issued by
// GenerateToken when present, a guest identifier kept in a cookie otherwise.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = 30 * 24 * time.Hour

// ErrInvalidToken reports a token that is malformed, expired, wrongly signed or has no user id.
var ErrInvalidToken = errors.New("invalid token")

// GenerateToken issues an HS256 token carrying userID in the user_id claim.
func GenerateToken(secret []byte, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("generate token: empty user id")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseToken validates tokenString and returns its user id.
func ParseToken(secret []byte, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return userID, nil
}
