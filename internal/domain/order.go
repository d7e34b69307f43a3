package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MaxOrderTotal is the exclusive upper bound of an order total, matching
// the NUMERIC(14,2) total_price column.
var MaxOrderTotal = decimal.New(1, 12)

// Order records a purchase. TotalPrice is fixed at creation.
type Order struct {
	ID         int64           `json:"id"`
	ClientID   int64           `json:"client_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int             `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Ledger mutates product stock. Debit fails with ErrInsufficientStock
// rather than letting stock go negative; both fail with
// ErrProductNotFound for unknown products.
type Ledger interface {
	Debit(ctx context.Context, productID int64, qty int) (int, error)
	Credit(ctx context.Context, productID int64, qty int) (int, error)
}

// OrderTx is the unit of work for order placement and cancellation.
// Lookups return (nil, nil) when no row matches.
type OrderTx interface {
	Ledger
	GetClient(ctx context.Context, id int64) (*Client, error)
	// LockProduct reads the product and holds its row until the
	// transaction ends.
	LockProduct(ctx context.Context, id int64) (*Product, error)
	// LockOrder reads the order and holds its row until the transaction
	// ends.
	LockOrder(ctx context.Context, id int64) (*Order, error)
	InsertOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id int64) error
}

// OrderStore is the port for order persistence.
type OrderStore interface {
	// InTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(tx OrderTx) error) error
	ListOrders(ctx context.Context) ([]Order, error)
}
