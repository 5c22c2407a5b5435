package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shrimpsizemoose/trekker/logger"
)

var ErrUnauthorized = errors.New("unauthorized")

// Auth resolves the professor behind a request. With auth enabled that is the
// subject of an HS256 bearer token issued elsewhere; without it the professor
// id header is trusted, which is meant for local development only.
type Auth struct {
	enabled  bool
	secret   []byte
	idHeader string
}

func NewAuth(config *Config) *Auth {
	return &Auth{
		enabled:  config.Server.EnableAuth,
		secret:   []byte(config.Auth.JWTSecret),
		idHeader: config.Auth.ProfessorIDHeader,
	}
}

func (a *Auth) ProfessorID(r *http.Request) (string, error) {
	if !a.enabled {
		id := strings.TrimSpace(r.Header.Get(a.idHeader))
		if id == "" {
			return "", fmt.Errorf("%w: missing %s header", ErrUnauthorized, a.idHeader)
		}
		return id, nil
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: invalid authorization header format", ErrUnauthorized)
	}
	return a.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
}

func (a *Auth) ParseToken(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		logger.Debug.Printf("Rejected professor token: %v", err)
		return "", fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	return claims.Subject, nil
}
