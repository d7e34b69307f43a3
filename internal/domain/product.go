package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxPrice is the exclusive upper bound of a product price, matching the
// NUMERIC(12,2) price column.
var MaxPrice = decimal.New(1, 10)

// Product is a catalog item with on-hand stock.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ProductPatch holds the fields of a partial product update. Nil fields
// are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// Apply copies the set fields of patch onto p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
}

// Validate checks the invariants every stored product must hold.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidProductName
	}
	if p.Price.IsNegative() || p.Price.GreaterThanOrEqual(MaxPrice) || !p.Price.Equal(p.Price.Round(2)) {
		return ErrInvalidPrice
	}
	if p.Stock < 0 {
		return ErrInvalidStock
	}
	return nil
}

// ProductRepository is the port for catalog persistence.
type ProductRepository interface {
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct returns (nil, nil) when id does not exist.
	GetProduct(ctx context.Context, id int64) (*Product, error)
	// UpdateProduct locks the row, calls fn with the current value and
	// stores the result if fn returns nil. Missing rows yield
	// ErrProductNotFound.
	UpdateProduct(ctx context.Context, id int64, fn func(*Product) error) (*Product, error)
	// DeleteProduct yields ErrProductNotFound or ErrProductInUse.
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context) ([]Product, error)
}
