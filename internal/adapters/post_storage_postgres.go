package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/announa/blogpost/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PostStorageImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostStorage(db *gorm.DB, logger *zap.Logger) *PostStorageImpl {
	return &PostStorageImpl{db: db, logger: logger}
}

func (s *PostStorageImpl) Create(ctx context.Context, post *domain.Post) error {
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		s.logger.Error("failed to create post", zap.Error(err))
		return err
	}
	return nil
}

func (s *PostStorageImpl) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&post)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(domain.ErrPostNotFound, result.Error)
	} else if result.Error != nil {
		s.logger.Error("failed to get post by ID", zap.String("id", id), zap.Error(result.Error))
		return nil, result.Error
	}
	return &post, nil
}

func (s *PostStorageImpl) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int64, error) {
	page := filter.Page.Normalize()
	db := s.db.WithContext(ctx).Model(&domain.Post{})
	if filter.AuthorID != "" {
		db = db.Where("author_id = ?", filter.AuthorID)
	}
	if tags := domain.NormalizeTags([]string{filter.Tag}); len(tags) == 1 {
		// tags are stored as a JSON array, match the element encoded the same way
		encoded, err := json.Marshal(tags[0])
		if err != nil {
			return nil, 0, fmt.Errorf("encode tag: %w", err)
		}
		db = db.Where("tags LIKE ? ESCAPE '\\'", "%"+escapeLike(string(encoded))+"%")
	}

	db = db.Session(&gorm.Session{})

	var (
		posts []*domain.Post
		total int64
	)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	err := db.Order("created_at DESC").Offset(page.Offset()).Limit(page.Limit).Find(&posts).Error
	if err != nil {
		s.logger.Error("failed to list posts", zap.Error(err))
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *PostStorageImpl) Save(ctx context.Context, post *domain.Post) error {
	if err := s.db.WithContext(ctx).Save(post).Error; err != nil {
		s.logger.Error("failed to save post", zap.String("id", post.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *PostStorageImpl) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if result.Error != nil {
		s.logger.Error("failed to delete post", zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *PostStorageImpl) DeleteByAuthor(ctx context.Context, authorID string) error {
	if err := s.db.WithContext(ctx).Delete(&domain.Post{}, "author_id = ?", authorID).Error; err != nil {
		return fmt.Errorf("delete posts of author: %w", err)
	}
	return nil
}
