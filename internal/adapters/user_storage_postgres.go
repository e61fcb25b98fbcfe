package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/announa/blogpost/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates every table used by the gorm backed storages.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

type UserStorageImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserStorage(db *gorm.DB, logger *zap.Logger) *UserStorageImpl {
	return &UserStorageImpl{db: db, logger: logger}
}

func (s *UserStorageImpl) Create(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Create(user)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return errors.Join(domain.ErrUserExists, result.Error)
	} else if result.Error != nil {
		s.logger.Error("failed to create user", zap.Error(result.Error))
		return result.Error
	}
	s.logger.Info("user created successfully", zap.String("id", user.ID))
	return nil
}

func (s *UserStorageImpl) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *UserStorageImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.first(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (s *UserStorageImpl) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	if tokenHash == "" {
		return nil, domain.ErrUserNotExist
	}
	return s.first(ctx, "reset_password_token = ?", tokenHash)
}

func (s *UserStorageImpl) first(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	result := s.db.WithContext(ctx).Where(query, arg).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(domain.ErrUserNotExist, result.Error)
	} else if result.Error != nil {
		s.logger.Error("failed to get user", zap.String("query", query), zap.Error(result.Error))
		return nil, result.Error
	}
	return &user, nil
}

func (s *UserStorageImpl) Save(ctx context.Context, user *domain.User) error {
	result := s.db.WithContext(ctx).Save(user)
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return errors.Join(domain.ErrUserExists, result.Error)
	} else if result.Error != nil {
		s.logger.Error("failed to save user", zap.Error(result.Error))
		return result.Error
	}
	return nil
}

func (s *UserStorageImpl) List(ctx context.Context, page domain.Page) ([]*domain.User, int64, error) {
	page = page.Normalize()
	var (
		users []*domain.User
		total int64
	)
	db := s.db.WithContext(ctx).Model(&domain.User{}).Session(&gorm.Session{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	err := db.Order("created_at ASC").Offset(page.Offset()).Limit(page.Limit).Find(&users).Error
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserStorageImpl) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id)
	if result.Error != nil {
		s.logger.Error("failed to delete user", zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrUserNotExist
	}
	return nil
}
