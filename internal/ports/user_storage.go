package ports

import (
	"context"

	"github.com/announa/blogpost/internal/domain"
)

type UserStorage interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error)
	Delete(ctx context.Context, id string) error
}

// TokenStorage persists refresh tokens.
type TokenStorage interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByID(ctx context.Context, id string) (*domain.RefreshToken, error)
	// Rotate revokes oldID and stores next. It fails with domain.ErrTokenReused
	// when oldID was already revoked by a concurrent caller.
	Rotate(ctx context.Context, oldID string, next *domain.RefreshToken) error
	RevokeFamily(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
