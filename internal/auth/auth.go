package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// CheckToken validates an access token and rejects ids present in the deny-list.
func CheckToken(ctx context.Context, tokenString string, providerJWT ports.JWT, denylist ports.Denylist, logger *zap.Logger) (*ports.Claims, error) {
	claims, err := providerJWT.GetClaims(tokenString)
	if err != nil {
		logger.Debug("failed to validate token", zap.Error(err))
		return nil, err
	}
	revoked, err := denylist.Contains(ctx, claims.ID)
	if err != nil {
		logger.Error("deny-list lookup failed", zap.Error(err))
		return nil, err
	}
	if revoked {
		return nil, errors.Join(domain.ErrTokenInvalid, ErrTokenRevoked)
	}
	logger.Debug("user authorized successfully", zap.String("user_id", claims.UserID))
	return claims, nil
}
