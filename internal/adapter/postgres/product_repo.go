package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

const productColumns = "id, name, description, price, stock, created_at"

func scanProduct(row scanner) (*domain.Product, error) {
	var (
		p    domain.Product
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Price, &p.Stock, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Description = stringPtr(desc)
	return &p, nil
}

// CreateProduct inserts a product.
func (d *DB) CreateProduct(ctx context.Context, p *domain.Product) error {
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO products (name, description, price, stock) VALUES ($1, $2, $3, $4) RETURNING id, created_at",
		p.Name, nullString(p.Description), p.Price, p.Stock,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert product: %w", mapError(ctx, err))
	}
	return nil
}

// GetProduct retrieves a product by ID.
func (d *DB) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(d.sql.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return p, nil
}

// UpdateProduct locks product id, applies fn and writes the result.
func (d *DB) UpdateProduct(ctx context.Context, id int64, fn func(*domain.Product) error) (*domain.Product, error) {
	var updated *domain.Product
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		p, err := scanProduct(tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id))
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		if err != nil {
			return mapError(ctx, err)
		}
		if err := fn(p); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE products SET name = $1, description = $2, price = $3, stock = $4 WHERE id = $5",
			p.Name, nullString(p.Description), p.Price, p.Stock, id,
		)
		if err != nil {
			return fmt.Errorf("update product: %w", mapError(ctx, err))
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct removes product id. The orders foreign key refuses the
// delete while orders reference the product.
func (d *DB) DeleteProduct(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", mapError(ctx, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// ListProducts returns all products ordered by id.
func (d *DB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", mapError(ctx, err))
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ctx, err)
	}
	return out, nil
}
