// Package auth maps bearer credentials to user ids.
package auth

import (
	"chat-backend/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens issued by the authentication
// service. The secret is injected at startup, not read from the environment
// here.
type Verifier struct {
	key []byte
}

func NewVerifier(key string) Verifier {
	return Verifier{key: []byte(key)}
}

// UserID parses and validates the token's signature and expiration, then
// returns the user id claim. Absence or invalidity of the token is a terminal
// authentication failure.
func (v Verifier) UserID(tokenString string) (int64, error) {
	if tokenString == "" {
		return 0, errors.ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return 0, errors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return 0, errors.ErrInvalidToken
	}
	return claims.UserID, nil
}

// Sign issues a signed token for the given user. Production tokens come from
// the authentication service; this helper serves tests and local tooling.
func Sign(key string, userID int64, ttl time.Duration) (string, error) {
	claims := &CustomClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-backend",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(key))
}
