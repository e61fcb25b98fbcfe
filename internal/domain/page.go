package domain

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type Page struct {
	Page  int `form:"page" json:"page"`
	Limit int `form:"limit" json:"limit"`
}

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

type PostFilter struct {
	Page
	AuthorID string `form:"author"`
	Tag      string `form:"tag"`
}

type ProductFilter struct {
	Page
	Category string `form:"category"`
	Query    string `form:"q"`
}

type ListResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

func NewListResult[T any](items []T, total int64, page Page) ListResult[T] {
	page = page.Normalize()
	if items == nil {
		items = []T{}
	}
	return ListResult[T]{Items: items, Total: total, Page: page.Page, Limit: page.Limit}
}
