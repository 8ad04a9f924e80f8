package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item as served by the remote catalog API. The catalog
// owns it; nothing in this module mutates a Product, only snapshots it into
// cart line items.
type Product struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Brand              string          `json:"brand,omitempty"`
	Category           string          `json:"category,omitempty"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Stock              int             `json:"stock"`
	Rating             float64         `json:"rating,omitempty"`
	Thumbnail          string          `json:"thumbnail,omitempty"`
}

// Source defines read operations against the product catalog.
type Source interface {
	List(ctx context.Context, limit, skip int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	ByCategory(ctx context.Context, slug string) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
}
