package postservice

import (
	"context"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"go.uber.org/zap"
)

type PostInput struct {
	Title    string   `json:"title" binding:"required,max=200"`
	Content  string   `json:"content" binding:"required"`
	Tags     []string `json:"tags" binding:"max=20,dive,max=40"`
	ImageURL string   `json:"imageUrl" binding:"omitempty,url"`
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID string
	Role   domain.Role
}

type PostService struct {
	posts  ports.PostStorage
	logger *zap.Logger
}

func NewPostService(posts ports.PostStorage, logger *zap.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

func (s *PostService) Create(ctx context.Context, actor Actor, in PostInput) (*domain.Post, error) {
	post, err := domain.NewPost(actor.UserID, in.Title, in.Content, in.Tags, in.ImageURL)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.logger.Info("post created", zap.String("post_id", post.ID), zap.String("author_id", post.AuthorID))
	return post, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.posts.GetByID(ctx, id)
}

func (s *PostService) List(ctx context.Context, filter domain.PostFilter) (domain.ListResult[*domain.Post], error) {
	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*domain.Post]{}, err
	}
	return domain.NewListResult(posts, total, filter.Page), nil
}

func (s *PostService) Update(ctx context.Context, actor Actor, id string, in PostInput) (*domain.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.CanBeModifiedBy(actor.UserID, actor.Role) {
		return nil, domain.ErrForbidden
	}
	if err := post.Update(in.Title, in.Content, in.Tags, in.ImageURL); err != nil {
		return nil, err
	}
	if err := s.posts.Save(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actor Actor, id string) error {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !post.CanBeModifiedBy(actor.UserID, actor.Role) {
		return domain.ErrForbidden
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", zap.String("post_id", id), zap.String("by", actor.UserID))
	return nil
}
