package productservice

import (
	"context"

	"github.com/announa/blogpost/internal/domain"
	"github.com/announa/blogpost/internal/ports"
	"go.uber.org/zap"
)

type ProductInput struct {
	Name         string  `json:"name" binding:"required,max=200"`
	Description  string  `json:"description"`
	Price        float64 `json:"price" binding:"gte=0"`
	Category     string  `json:"category"`
	CountInStock int     `json:"countInStock" binding:"gte=0"`
	ImageURL     string  `json:"imageUrl" binding:"omitempty,url"`
}

func (in ProductInput) toDomain() domain.ProductInput {
	return domain.ProductInput{
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Category:     in.Category,
		CountInStock: in.CountInStock,
		ImageURL:     in.ImageURL,
	}
}

type ProductService struct {
	products ports.ProductStorage
	logger   *zap.Logger
}

func NewProductService(products ports.ProductStorage, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	product, err := domain.NewProduct(in.toDomain())
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", product.ID))
	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

func (s *ProductService) List(ctx context.Context, filter domain.ProductFilter) (domain.ListResult[*domain.Product], error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*domain.Product]{}, err
	}
	return domain.NewListResult(products, total, filter.Page), nil
}

func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := product.Update(in.toDomain()); err != nil {
		return nil, err
	}
	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}
