package app

import (
	"context"
	"errors"
	"maps"
	"sync"
	"time"

	"storefront/internal/domain"
)

type mockClientRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*domain.Client, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.Client, error)
	createFn     func(ctx context.Context, c *domain.Client) error
	listFn       func(ctx context.Context) ([]domain.Client, error)
	updateRoleFn func(ctx context.Context, id int64, role domain.Role) error
}

func (m *mockClientRepo) GetClientByEmail(ctx context.Context, email string) (*domain.Client, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockClientRepo) GetClientByID(ctx context.Context, id int64) (*domain.Client, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockClientRepo) CreateClient(ctx context.Context, c *domain.Client) error {
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	c.ID = 1
	c.CreatedAt = time.Now()
	return nil
}

func (m *mockClientRepo) ListClients(ctx context.Context) ([]domain.Client, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockClientRepo) UpdateClientRole(ctx context.Context, id int64, role domain.Role) error {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, id, role)
	}
	return nil
}

type mockProductRepo struct {
	createFn func(ctx context.Context, p *domain.Product) error
	getFn    func(ctx context.Context, id int64) (*domain.Product, error)
	updateFn func(ctx context.Context, id int64, fn func(*domain.Product) error) (*domain.Product, error)
	deleteFn func(ctx context.Context, id int64) error
	listFn   func(ctx context.Context) ([]domain.Product, error)
}

func (m *mockProductRepo) CreateProduct(ctx context.Context, p *domain.Product) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	p.ID = 1
	return nil
}

func (m *mockProductRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProductRepo) UpdateProduct(ctx context.Context, id int64, fn func(*domain.Product) error) (*domain.Product, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, fn)
	}
	return nil, domain.ErrProductNotFound
}

func (m *mockProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockProductRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// fakeCache is an in-process ListCache with the same generation rules as
// the Redis adapter.
type fakeCache struct {
	mu          sync.Mutex
	values      map[string][]byte
	gens        map[string]int64
	getErr      error
	invalidErr  error
	invalidated []string

	// beforeSet runs before SetIfGeneration takes the lock.
	beforeSet func()
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, gens: map[string]int64{}}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.values[key]
	return v, ok, nil
}

func (c *fakeCache) Generation(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return 0, c.getErr
	}
	return c.gens[key], nil
}

func (c *fakeCache) SetIfGeneration(ctx context.Context, key string, gen int64, value []byte, ttl time.Duration) (bool, error) {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false, nil
	}
	c.values[key] = value
	return true, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.invalidErr != nil {
		return c.invalidErr
	}
	delete(c.values, key)
	c.gens[key]++
	c.invalidated = append(c.invalidated, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}}
}

func (c *fakeCounter) Reserve(ctx context.Context, key string, limit int64, window time.Duration) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, false, c.err
	}
	if c.counts[key] >= limit {
		return c.counts[key], false, nil
	}
	c.counts[key]++
	return c.counts[key], true, nil
}

func (c *fakeCounter) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.counts[key] <= 1 {
		delete(c.counts, key)
		return nil
	}
	c.counts[key]--
	return nil
}

func (c *fakeCounter) Reset(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.counts, key)
	return nil
}

type fakeIssuer struct {
	issued int
}

func (f *fakeIssuer) Issue(c *domain.Client) (string, time.Time, error) {
	f.issued++
	return "token-" + c.Email, time.Now().Add(15 * time.Minute), nil
}

func (f *fakeIssuer) Verify(token string) (*domain.Claims, error) {
	if token != "token-admin@example.com" {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Claims{ClientID: 1, Email: "admin@example.com", Role: domain.RoleAdmin}, nil
}

// fakeOrderStore keeps clients, products and orders in maps. InTx works on
// copies and swaps them in only when fn succeeds.
type fakeOrderStore struct {
	mu       sync.Mutex
	clients  map[int64]domain.Client
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	nextID   int64
	txErr    error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		clients:  map[int64]domain.Client{},
		products: map[int64]domain.Product{},
		orders:   map[int64]domain.Order{},
	}
}

func (s *fakeOrderStore) InTx(ctx context.Context, fn func(tx domain.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txErr != nil {
		return s.txErr
	}
	tx := &fakeOrderTx{
		store:    s,
		products: maps.Clone(s.products),
		orders:   maps.Clone(s.orders),
		nextID:   s.nextID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.products, s.orders, s.nextID = tx.products, tx.orders, tx.nextID
	return nil
}

func (s *fakeOrderStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeOrderStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

type fakeOrderTx struct {
	store    *fakeOrderStore
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	nextID   int64
}

func (tx *fakeOrderTx) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	c, ok := tx.store.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tx *fakeOrderTx) LockProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := tx.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tx *fakeOrderTx) LockOrder(ctx context.Context, id int64) (*domain.Order, error) {
	o, ok := tx.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (tx *fakeOrderTx) Debit(ctx context.Context, productID int64, qty int) (int, error) {
	p, ok := tx.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	if p.Stock < qty {
		return p.Stock, domain.ErrInsufficientStock
	}
	p.Stock -= qty
	tx.products[productID] = p
	return p.Stock, nil
}

func (tx *fakeOrderTx) Credit(ctx context.Context, productID int64, qty int) (int, error) {
	p, ok := tx.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}
	p.Stock += qty
	tx.products[productID] = p
	return p.Stock, nil
}

func (tx *fakeOrderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	tx.nextID++
	o.ID = tx.nextID
	o.CreatedAt = time.Now()
	tx.orders[o.ID] = *o
	return nil
}

func (tx *fakeOrderTx) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := tx.orders[id]; !ok {
		return errors.New("order vanished inside transaction")
	}
	delete(tx.orders, id)
	return nil
}
