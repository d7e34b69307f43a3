package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// ProductService manages the catalog and the cached product list.
type ProductService struct {
	repo domain.ProductRepository
	list *readThrough[domain.Product]
	log  zerolog.Logger
}

// NewProductService creates a ProductService whose list is cached for ttl.
func NewProductService(repo domain.ProductRepository, cache domain.ListCache, ttl time.Duration, log zerolog.Logger) *ProductService {
	return &ProductService{
		repo: repo,
		list: newReadThrough(cache, KeyProducts, ttl, repo.ListProducts, log),
		log:  log,
	}
}

// NewProduct is the input for Create. Stock defaults to zero.
type NewProduct struct {
	Name        string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// List returns every product.
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.list.Get(ctx)
}

// Create validates and stores a new product.
func (s *ProductService) Create(ctx context.Context, in NewProduct) (*domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil {
		return nil, domain.ErrMissingProductFields
	}
	p := &domain.Product{Name: name, Description: in.Description, Price: *in.Price}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.list.Invalidate(ctx)
	s.log.Info().Int64("product_id", p.ID).Msg("product created")
	return p, nil
}

// Update applies patch to product id. Stock is set to an absolute value.
func (s *ProductService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	p, err := s.repo.UpdateProduct(ctx, id, func(p *domain.Product) error {
		p.Apply(patch)
		return p.Validate()
	})
	if err != nil {
		return nil, err
	}
	s.list.Invalidate(ctx)
	s.log.Info().Int64("product_id", id).Msg("product updated")
	return p, nil
}

// Delete removes product id. Products referenced by orders are kept.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.list.Invalidate(ctx)
	s.log.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}
