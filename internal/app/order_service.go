package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/metrics"
)

// OrderService places and cancels orders against the inventory ledger.
type OrderService struct {
	store    domain.OrderStore
	list     *readThrough[domain.Order]
	products *readThrough[domain.Product]
	log      zerolog.Logger
}

// NewOrderService creates an OrderService. Order writes also invalidate
// the product list held by products, since they change stock.
func NewOrderService(store domain.OrderStore, cache domain.ListCache, ttl time.Duration, products *ProductService, log zerolog.Logger) *OrderService {
	return &OrderService{
		store:    store,
		list:     newReadThrough(cache, KeyOrders, ttl, store.ListOrders, log),
		products: products.list,
		log:      log,
	}
}

// List returns every order.
func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.list.Get(ctx)
}

// Place creates an order for qty units of productID and debits the stock
// in the same transaction.
func (s *OrderService) Place(ctx context.Context, clientID, productID int64, qty int) (*domain.Order, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	var order *domain.Order
	err := s.store.InTx(ctx, func(tx domain.OrderTx) error {
		client, err := tx.GetClient(ctx, clientID)
		if err != nil {
			return fmt.Errorf("get client %d: %w", clientID, err)
		}
		product, err := tx.LockProduct(ctx, productID)
		if err != nil {
			return fmt.Errorf("lock product %d: %w", productID, err)
		}
		if client == nil || product == nil {
			return domain.ErrInvalidReference
		}

		total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
		if total.GreaterThanOrEqual(domain.MaxOrderTotal) {
			return domain.ErrOrderTotalTooLarge
		}
		if _, err := tx.Debit(ctx, productID, qty); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return domain.ErrInvalidReference
			}
			return err
		}

		order = &domain.Order{
			ClientID:   clientID,
			ProductID:  productID,
			Quantity:   qty,
			TotalPrice: total,
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	metrics.OrdersPlaced.Inc()
	s.log.Info().
		Int64("order_id", order.ID).
		Int64("client_id", clientID).
		Int64("product_id", productID).
		Int("quantity", qty).
		Str("total_price", order.TotalPrice.String()).
		Msg("order placed")
	return order, nil
}

// Cancel deletes order id and returns its quantity to stock when the
// product still exists.
func (s *OrderService) Cancel(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(tx domain.OrderTx) error {
		order, err := tx.LockOrder(ctx, id)
		if err != nil {
			return fmt.Errorf("lock order %d: %w", id, err)
		}
		if order == nil {
			return domain.ErrOrderNotFound
		}
		if _, err := tx.Credit(ctx, order.ProductID, order.Quantity); err != nil && !errors.Is(err, domain.ErrProductNotFound) {
			return err
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	metrics.OrdersCancelled.Inc()
	s.log.Info().Int64("order_id", id).Msg("order cancelled")
	return nil
}

func (s *OrderService) invalidate(ctx context.Context) {
	s.list.Invalidate(ctx)
	s.products.Invalidate(ctx)
}
