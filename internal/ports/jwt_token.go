package ports

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

type JWT interface {
	BuildAccessToken(userID, role string) (string, time.Time, error)
	BuildRefreshToken(userID, tokenID string, expiresAt time.Time) (string, error)
	GetClaims(tokenString string) (*Claims, error)
	GetRefreshClaims(tokenString string) (*Claims, error)
}

type Claims struct {
	jwt.RegisteredClaims
	UserID string    `json:"uid"`
	Role   string    `json:"role,omitempty"`
	Kind   TokenKind `json:"typ"`
}
