package adapters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/announa/blogpost/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type ProductStorageImpl struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewProductStorage(db *gorm.DB, logger *zap.Logger) *ProductStorageImpl {
	return &ProductStorageImpl{db: db, logger: logger}
}

func (s *ProductStorageImpl) Create(ctx context.Context, product *domain.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		s.logger.Error("failed to create product", zap.Error(err))
		return err
	}
	return nil
}

func (s *ProductStorageImpl) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var product domain.Product
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&product)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.Join(domain.ErrProductNotFound, result.Error)
	} else if result.Error != nil {
		s.logger.Error("failed to get product by ID", zap.String("id", id), zap.Error(result.Error))
		return nil, result.Error
	}
	return &product, nil
}

func (s *ProductStorageImpl) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int64, error) {
	page := filter.Page.Normalize()
	db := s.db.WithContext(ctx).Model(&domain.Product{})
	if category := strings.ToLower(strings.TrimSpace(filter.Category)); category != "" {
		db = db.Where("category = ?", category)
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		db = db.Where("LOWER(name) LIKE ? ESCAPE '\\'", "%"+escapeLike(q)+"%")
	}

	db = db.Session(&gorm.Session{})

	var (
		products []*domain.Product
		total    int64
	)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	err := db.Order("name ASC").Offset(page.Offset()).Limit(page.Limit).Find(&products).Error
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return nil, 0, err
	}
	return products, total, nil
}

func (s *ProductStorageImpl) Save(ctx context.Context, product *domain.Product) error {
	if err := s.db.WithContext(ctx).Save(product).Error; err != nil {
		s.logger.Error("failed to save product", zap.String("id", product.ID), zap.Error(err))
		return err
	}
	return nil
}

func (s *ProductStorageImpl) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&domain.Product{}, "id = ?", id)
	if result.Error != nil {
		s.logger.Error("failed to delete product", zap.String("id", id), zap.Error(result.Error))
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// GormPinger reports database health for gorm backed storages.
type GormPinger struct {
	db *gorm.DB
}

func NewGormPinger(db *gorm.DB) *GormPinger {
	return &GormPinger{db: db}
}

func (p *GormPinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
