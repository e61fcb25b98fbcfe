package adapters

import (
	"errors"
	"fmt"
	"time"

	"github.com/announa/blogpost/configs"
	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ProviderJWT struct {
	accessExp     time.Duration
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	logger        *zap.Logger
}

func NewProviderJWT(cfg *configs.Config, logger *zap.Logger) *ProviderJWT {
	return &ProviderJWT{
		accessExp:     cfg.Auth.AccessTokenExp,
		accessSecret:  []byte(cfg.Auth.AccessSecret),
		refreshSecret: []byte(cfg.Auth.RefreshSecret),
		issuer:        cfg.Auth.Issuer,
		logger:        logger,
	}
}

var (
	ErrNotValidToken = errors.New("not valid token")
)

func (pj *ProviderJWT) BuildAccessToken(userID, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(pj.accessExp)
	tokenString, err := pj.sign(pj.accessSecret, ports.Claims{
		RegisteredClaims: pj.registered(userID, uuid.NewString(), now, expiresAt),
		UserID:           userID,
		Role:             role,
		Kind:             ports.AccessToken,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

func (pj *ProviderJWT) BuildRefreshToken(userID, tokenID string, expiresAt time.Time) (string, error) {
	return pj.sign(pj.refreshSecret, ports.Claims{
		RegisteredClaims: pj.registered(userID, tokenID, time.Now(), expiresAt),
		UserID:           userID,
		Kind:             ports.RefreshToken,
	})
}

func (pj *ProviderJWT) registered(userID, id string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        id,
		Issuer:    pj.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (pj *ProviderJWT) sign(secret []byte, claims ports.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secret)
	if err != nil {
		pj.logger.Error("Failed to sign token", zap.Error(err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

func (pj *ProviderJWT) GetClaims(tokenString string) (*ports.Claims, error) {
	return pj.parse(tokenString, pj.accessSecret, ports.AccessToken)
}

func (pj *ProviderJWT) GetRefreshClaims(tokenString string) (*ports.Claims, error) {
	return pj.parse(tokenString, pj.refreshSecret, ports.RefreshToken)
}

func (pj *ProviderJWT) parse(tokenString string, secret []byte, kind ports.TokenKind) (*ports.Claims, error) {
	claims := &ports.Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(pj.issuer),
	)
	if err != nil {
		pj.logger.Debug("Failed to parse token claims", zap.Error(err))
		return nil, errors.Join(domain.ErrTokenInvalid, fmt.Errorf("failed to parse claims: %w", err))
	}

	if !token.Valid {
		pj.logger.Warn("Invalid token received")
		return nil, errors.Join(domain.ErrTokenInvalid, ErrNotValidToken)
	}

	if claims.Kind != kind || claims.UserID == "" || claims.ID == "" {
		pj.logger.Warn("token with unexpected claims", zap.String("kind", string(claims.Kind)))
		return nil, errors.Join(domain.ErrTokenInvalid, ErrNotValidToken)
	}

	return claims, nil
}
