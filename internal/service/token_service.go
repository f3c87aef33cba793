package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atelier-labs/commission-api/internal/models"
	"github.com/atelier-labs/commission-api/pkg/config"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
)

// TokenService validates access tokens minted by the external identity
// provider. This service never issues tokens.
type TokenService struct {
	cfg config.JWTConfig
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	return &TokenService{cfg: cfg}
}

// Validate parses a bearer token and returns its claims.
func (s *TokenService) Validate(tokenString string) (*models.Claims, error) {
	options := []jwt.ParserOption{}
	if s.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.cfg.Issuer))
	}
	if len(s.cfg.Audience) > 0 {
		options = append(options, jwt.WithAudience(s.cfg.Audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, options...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.ActorID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing actor")
	}
	return claims, nil
}
