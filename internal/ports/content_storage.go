package ports

import (
	"context"

	"github.com/announa/blogpost/internal/domain"
)

type PostStorage interface {
	Create(ctx context.Context, post *domain.Post) error
	GetByID(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int64, error)
	Save(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id string) error
	DeleteByAuthor(ctx context.Context, authorID string) error
}

type ProductStorage interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error)
	Save(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}
