package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/announa/blogpost/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type TokenStorageImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTokenStorage(db *gorm.DB, logger *zap.Logger) *TokenStorageImpl {
	return &TokenStorageImpl{db: db, logger: logger}
}

func (s *TokenStorageImpl) Create(ctx context.Context, token *domain.RefreshToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		s.logger.Error("failed to store refresh token", zap.String("user_id", token.UserID), zap.Error(err))
		return fmt.Errorf("creating refresh token: %w", err)
	}
	return nil
}

func (s *TokenStorageImpl) GetByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&token)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(domain.ErrTokenInvalid, result.Error)
	} else if result.Error != nil {
		return nil, fmt.Errorf("getting refresh token: %w", result.Error)
	}
	return &token, nil
}

func (s *TokenStorageImpl) Rotate(ctx context.Context, oldID string, next *domain.RefreshToken) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.RefreshToken{}).
			Where("id = ? AND revoked = ?", oldID, false).
			Update("revoked", true)
		if result.Error != nil {
			return fmt.Errorf("revoking old token: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrTokenReused
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("creating new token: %w", err)
		}
		return nil
	})
}

func (s *TokenStorageImpl) RevokeFamily(ctx context.Context, familyID string) error {
	err := s.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("family_id = ?", familyID).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("revoking token family: %w", err)
	}
	return nil
}

func (s *TokenStorageImpl) RevokeAllForUser(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Model(&domain.RefreshToken{}).
		Where("user_id = ?", userID).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("revoking all tokens for user: %w", err)
	}
	return nil
}

func (s *TokenStorageImpl) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Where("expires_at <= ?", time.Now()).Delete(&domain.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("deleting expired tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
