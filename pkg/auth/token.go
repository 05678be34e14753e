// Package auth parses the access tokens issued by the identity collaborator.
// Token issuance lives elsewhere; this service only needs the user id out of
// a bearer token.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/saudamarket/storefront-backend/pkg/config"
)

// ParseUserID validates the token signature and extracts the subject user id.
func ParseUserID(cfg config.JWTConfig, token string) (uuid.UUID, error) {
	if cfg.Secret == "" {
		return uuid.Nil, fmt.Errorf("jwt secret not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := jwt.MapClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, opts...); err != nil {
		return uuid.Nil, fmt.Errorf("parse access token: %w", err)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return uuid.Nil, fmt.Errorf("token subject missing")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return userID, nil
}
