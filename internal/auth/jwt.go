// Package auth verifies player bearer tokens.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
	issuer     = "livebet"
)

type Claims struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`

	jwt.RegisteredClaims
}

func (c Claims) IsAdmin() bool {
	return strings.EqualFold(c.Role, RoleAdmin)
}

type JWT struct {
	Secret   []byte
	TokenTTL time.Duration
}

func (j JWT) Sign(claims Claims) (token string, expiresAt time.Time, err error) {
	if strings.TrimSpace(claims.PlayerID) == "" {
		return "", time.Time{}, errors.New("player id required")
	}
	now := time.Now().UTC()
	if claims.Role == "" {
		claims.Role = RolePlayer
	}
	if claims.Subject == "" {
		claims.Subject = claims.PlayerID
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.NotBefore == nil {
		claims.NotBefore = jwt.NewNumericDate(now.Add(-5 * time.Second))
	}
	ttl := j.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if claims.ExpiresAt == nil {
		expiresAt = now.Add(ttl)
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	} else {
		expiresAt = claims.ExpiresAt.Time
	}
	if claims.Issuer == "" {
		claims.Issuer = issuer
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expiresAt, nil
}

func (j JWT) Verify(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.Secret, nil
	})
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if strings.TrimSpace(c.PlayerID) == "" {
		return Claims{}, errors.New("token has no player id")
	}
	return *c, nil
}
