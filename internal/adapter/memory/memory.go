// Package memory implements in-memory stores for development and testing.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"storefront/internal/domain"
)

// DB implements an in-memory database storage. Transactions take the
// single lock, so they are serializable.
type DB struct {
	mu       sync.Mutex
	clients  map[int64]domain.Client
	products map[int64]domain.Product
	orders   map[int64]domain.Order

	clientIDCounter  int64
	productIDCounter int64
	orderIDCounter   int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		clients:  make(map[int64]domain.Client),
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
	}
}

// Ensure interfaces are met.
var _ domain.ClientRepository = (*DB)(nil)
var _ domain.ProductRepository = (*DB)(nil)
var _ domain.OrderStore = (*DB)(nil)

// Ping always succeeds.
func (db *DB) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (db *DB) Close() error { return nil }

// --- ClientRepository ---

// GetClientByEmail retrieves a client by email.
func (db *DB) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, c := range db.clients {
		if c.Email == email {
			return &c, nil
		}
	}
	return nil, nil
}

// GetClientByID retrieves a client by ID.
func (db *DB) GetClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// CreateClient inserts a client, enforcing unique email and phone.
func (db *DB) CreateClient(ctx context.Context, c *domain.Client) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.clients {
		if existing.Email == c.Email {
			return domain.ErrEmailExists
		}
		if c.Phone != nil && existing.Phone != nil && *existing.Phone == *c.Phone {
			return domain.ErrPhoneExists
		}
	}

	db.clientIDCounter++
	c.ID = db.clientIDCounter
	c.CreatedAt = time.Now().UTC()
	db.clients[c.ID] = *c
	return nil
}

// ListClients returns all clients ordered by id.
func (db *DB) ListClients(ctx context.Context) ([]domain.Client, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return sortedByID(db.clients), nil
}

// UpdateClientRole sets the role of client id.
func (db *DB) UpdateClientRole(ctx context.Context, id int64, role domain.Role) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.clients[id]
	if !ok {
		return domain.ErrClientNotFound
	}
	c.Role = role
	db.clients[id] = c
	return nil
}

// --- ProductRepository ---

// CreateProduct inserts a product.
func (db *DB) CreateProduct(ctx context.Context, p *domain.Product) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.productIDCounter++
	p.ID = db.productIDCounter
	p.CreatedAt = time.Now().UTC()
	db.products[p.ID] = *p
	return nil
}

// GetProduct retrieves a product by ID.
func (db *DB) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpdateProduct applies fn to product id under the lock.
func (db *DB) UpdateProduct(ctx context.Context, id int64, fn func(*domain.Product) error) (*domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	p, ok := db.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	if p.Stock < 0 {
		return nil, domain.ErrInvalidStock
	}
	db.products[id] = p
	return &p, nil
}

// DeleteProduct removes a product that no order references.
func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	for _, o := range db.orders {
		if o.ProductID == id {
			return domain.ErrProductInUse
		}
	}
	delete(db.products, id)
	return nil
}

// ListProducts returns all products ordered by id.
func (db *DB) ListProducts(ctx context.Context) ([]domain.Product, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return sortedByID(db.products), nil
}

// --- OrderStore ---

// InTx runs fn against copies of the product and order tables and keeps
// the copies only if fn succeeds and ctx is still live.
func (db *DB) InTx(ctx context.Context, fn func(tx domain.OrderTx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &orderTx{
		db:       db,
		products: maps.Clone(db.products),
		orders:   maps.Clone(db.orders),
		nextID:   db.orderIDCounter,
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	db.products, db.orders, db.orderIDCounter = tx.products, tx.orders, tx.nextID
	return nil
}

// ListOrders returns all orders ordered by id.
func (db *DB) ListOrders(ctx context.Context) ([]domain.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return sortedByID(db.orders), nil
}

type orderTx struct {
	db       *DB
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	nextID   int64
}

func (tx *orderTx) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	c, ok := tx.db.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tx *orderTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := tx.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *orderTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, ok := tx.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (tx *orderTx) Debit(ctx context.Context, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	p, ok := tx.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return 0, domain.ErrInsufficientStock
	}
	p.Stock -= qty
	tx.products[productID] = p
	return p.Stock, nil
}

func (tx *orderTx) Credit(ctx context.Context, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	p, ok := tx.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	p.Stock += qty
	tx.products[productID] = p
	return p.Stock, nil
}

func (tx *orderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	if _, ok := tx.db.clients[o.ClientID]; !ok {
		return domain.ErrInvalidReference
	}
	if _, ok := tx.products[o.ProductID]; !ok {
		return domain.ErrInvalidReference
	}
	tx.nextID++
	o.ID = tx.nextID
	o.CreatedAt = time.Now().UTC()
	tx.orders[o.ID] = *o
	return nil
}

func (tx *orderTx) DeleteOrder(ctx context.Context, id int64) error {
	delete(tx.orders, id)
	return nil
}

type identified interface {
	domain.Client | domain.Product | domain.Order
}

func sortedByID[T identified](m map[int64]T) []T {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
