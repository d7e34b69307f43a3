package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

const orderColumns = "id, client_id, product_id, quantity, total_price, created_at"

func scanOrder(row scanner) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.ClientID, &o.ProductID, &o.Quantity, &o.TotalPrice, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// withTx runs fn inside a transaction. The deferred rollback is a no-op
// after a successful commit.
func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", mapError(ctx, err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapError(ctx, err))
	}
	return nil
}

// InTx runs fn in a transaction.
func (d *DB) InTx(ctx context.Context, fn func(tx domain.OrderTx) error) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

// ListOrders returns all orders ordered by id.
func (d *DB) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", mapError(ctx, err))
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ctx, err)
	}
	return out, nil
}

type orderTx struct {
	tx *sql.Tx
}

var _ domain.OrderTx = (*orderTx)(nil)

func (t *orderTx) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	return getClient(ctx, t.tx.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id))
}

func (t *orderTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(t.tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return p, nil
}

func (t *orderTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return o, nil
}

// Debit subtracts qty from the product's stock only when enough remains.
func (t *orderTx) Debit(ctx context.Context, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	var stock int
	err := t.tx.QueryRowContext(ctx,
		"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1 RETURNING stock",
		qty, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, t.missOrShort(ctx, productID)
	}
	if err != nil {
		return 0, fmt.Errorf("debit product %d: %w", productID, mapError(ctx, err))
	}
	return stock, nil
}

// missOrShort explains why a conditional debit matched no row.
func (t *orderTx) missOrShort(ctx context.Context, productID int64) error {
	var exists bool
	err := t.tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists)
	if err != nil {
		return mapError(ctx, err)
	}
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

// Credit adds qty back to the product's stock.
func (t *orderTx) Credit(ctx context.Context, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	var stock int
	err := t.tx.QueryRowContext(ctx,
		"UPDATE products SET stock = stock + $1 WHERE id = $2 RETURNING stock",
		qty, productID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit product %d: %w", productID, mapError(ctx, err))
	}
	return stock, nil
}

func (t *orderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRowContext(ctx,
		"INSERT INTO orders (client_id, product_id, quantity, total_price) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		o.ClientID, o.ProductID, o.Quantity, o.TotalPrice,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", mapError(ctx, err))
	}
	return nil
}

func (t *orderTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, err := t.tx.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete order: %w", mapError(ctx, err))
	}
	return nil
}
