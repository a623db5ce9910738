// Package auth issues round tokens. A token binds a round to whoever created
// it, so only that client can play it.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	RoundID string `json:"rid"`
	jwt.RegisteredClaims
}

func Sign(secret []byte, roundID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RoundID: roundID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   roundID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func Verify(secret []byte, token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.RoundID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Service holds the signing secret and token lifetime.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret []byte, ttl time.Duration) *Service {
	return &Service{secret: secret, ttl: ttl}
}

func (s *Service) Sign(roundID string) (string, error) {
	return Sign(s.secret, roundID, s.ttl)
}

func (s *Service) Verify(token string) (*Claims, error) {
	return Verify(s.secret, token)
}
