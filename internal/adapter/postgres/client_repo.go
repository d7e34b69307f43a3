package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

const clientColumns = "id, name, email, phone, password_hash, role, created_at"

func scanClient(row scanner) (*domain.Client, error) {
	var (
		c     domain.Client
		phone sql.NullString
		role  string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &phone, &c.PasswordHash, &role, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Phone = stringPtr(phone)
	c.Role = domain.Role(role)
	return &c, nil
}

// GetClientByEmail retrieves a client by email.
func (d *DB) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE email = $1", email)
	return getClient(ctx, row)
}

// GetClientByID retrieves a client by ID.
func (d *DB) GetClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id)
	return getClient(ctx, row)
}

func getClient(ctx context.Context, row *sql.Row) (*domain.Client, error) {
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(ctx, err)
	}
	return c, nil
}

// CreateClient inserts a client.
func (d *DB) CreateClient(ctx context.Context, c *domain.Client) error {
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO clients (name, email, phone, password_hash, role) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at",
		c.Name, c.Email, nullString(c.Phone), c.PasswordHash, string(c.Role),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", mapError(ctx, err))
	}
	return nil
}

// ListClients returns all clients ordered by id.
func (d *DB) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", mapError(ctx, err))
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(ctx, err)
	}
	return out, nil
}

// UpdateClientRole sets the role of client id.
func (d *DB) UpdateClientRole(ctx context.Context, id int64, role domain.Role) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE clients SET role = $1 WHERE id = $2", string(role), id)
	if err != nil {
		return fmt.Errorf("update client role: %w", mapError(ctx, err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}
