package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/announa/blogpost/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type PostStorageMongo struct {
	posts  *mongo.Collection
	logger *zap.Logger
}

func NewPostStorageMongo(db *mongo.Database, logger *zap.Logger) *PostStorageMongo {
	return &PostStorageMongo{posts: db.Collection(postsCollection), logger: logger}
}

func (s *PostStorageMongo) Create(ctx context.Context, post *domain.Post) error {
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now
	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		s.logger.Error("failed to create post", zap.Error(err))
		return err
	}
	return nil
}

func (s *PostStorageMongo) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(domain.ErrPostNotFound, err)
	} else if err != nil {
		s.logger.Error("failed to get post by ID", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &post, nil
}

func (s *PostStorageMongo) List(ctx context.Context, filter domain.PostFilter) ([]*domain.Post, int64, error) {
	page := filter.Page.Normalize()
	query := bson.M{}
	if filter.AuthorID != "" {
		query["authorId"] = filter.AuthorID
	}
	if tags := domain.NormalizeTags([]string{filter.Tag}); len(tags) == 1 {
		query["tags"] = tags[0]
	}

	total, err := s.posts.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}
	opts := pageOptions(page.Offset(), page.Limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.posts.Find(ctx, query, opts)
	if err != nil {
		s.logger.Error("failed to list posts", zap.Error(err))
		return nil, 0, err
	}
	var posts []*domain.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decode posts: %w", err)
	}
	return posts, total, nil
}

func (s *PostStorageMongo) Save(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()
	result, err := s.posts.ReplaceOne(ctx, bson.M{"_id": post.ID}, post)
	if err != nil {
		s.logger.Error("failed to save post", zap.String("id", post.ID), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *PostStorageMongo) Delete(ctx context.Context, id string) error {
	result, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		s.logger.Error("failed to delete post", zap.String("id", id), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (s *PostStorageMongo) DeleteByAuthor(ctx context.Context, authorID string) error {
	if _, err := s.posts.DeleteMany(ctx, bson.M{"authorId": authorID}); err != nil {
		return fmt.Errorf("delete posts of author: %w", err)
	}
	return nil
}

type ProductStorageMongo struct {
	products *mongo.Collection
	logger   *zap.Logger
}

func NewProductStorageMongo(db *mongo.Database, logger *zap.Logger) *ProductStorageMongo {
	return &ProductStorageMongo{products: db.Collection(productsCollection), logger: logger}
}

func (s *ProductStorageMongo) Create(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now
	if _, err := s.products.InsertOne(ctx, product); err != nil {
		s.logger.Error("failed to create product", zap.Error(err))
		return err
	}
	return nil
}

func (s *ProductStorageMongo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Join(domain.ErrProductNotFound, err)
	} else if err != nil {
		s.logger.Error("failed to get product by ID", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return &product, nil
}

func (s *ProductStorageMongo) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	page := filter.Page.Normalize()
	query := bson.M{}
	if category := strings.ToLower(strings.TrimSpace(filter.Category)); category != "" {
		query["category"] = category
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
	}

	total, err := s.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	opts := pageOptions(page.Offset(), page.Limit).SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.products.Find(ctx, query, opts)
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, 0, err
	}
	var products []*domain.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, total, nil
}

func (s *ProductStorageMongo) Save(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()
	result, err := s.products.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		s.logger.Error("failed to save product", zap.String("id", product.ID), zap.Error(err))
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *ProductStorageMongo) Delete(ctx context.Context, id string) error {
	result, err := s.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		s.logger.Error("failed to delete product", zap.String("id", id), zap.Error(err))
		return err
	}
	if result.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
