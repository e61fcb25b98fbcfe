package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID           string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Name         string    `gorm:"not null;index" bson:"name" json:"name"`
	Description  string    `gorm:"type:text" bson:"description" json:"description"`
	Price        float64   `gorm:"not null" bson:"price" json:"price"`
	Category     string    `gorm:"index" bson:"category" json:"category"`
	CountInStock int       `gorm:"default:0" bson:"countInStock" json:"countInStock"`
	ImageURL     string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

// ProductInput carries the mutable product fields.
type ProductInput struct {
	Name         string
	Description  string
	Price        float64
	Category     string
	CountInStock int
	ImageURL     string
}

func NewProduct(in ProductInput) (*Product, error) {
	product := &Product{ID: uuid.NewString()}
	if err := product.Update(in); err != nil {
		return nil, err
	}
	return product, nil
}

func (p *Product) Update(in ProductInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > maxTitleLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxTitleLength)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.CountInStock < 0 {
		return fmt.Errorf("%w: countInStock must not be negative", ErrInvalidInput)
	}
	p.Name = name
	p.Description = strings.TrimSpace(in.Description)
	p.Price = in.Price
	p.Category = strings.ToLower(strings.TrimSpace(in.Category))
	p.CountInStock = in.CountInStock
	p.ImageURL = strings.TrimSpace(in.ImageURL)
	return nil
}
