// Package store provides an interface for order storage operations.
package store

import (
	"context"

	"github.com/abgdnv/coffeeshop/internal/store/db"
)

// Queries is the set of order and product operations available
// both directly on an OrderStore and inside one of its transactions.
type Queries interface {
	// ListOrders returns every order header ordered by ID.
	// Returns an empty slice if no orders exist.
	ListOrders(ctx context.Context) ([]db.Order, error)

	// FindOrderByID retrieves a single order header by its identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindOrderByID(ctx context.Context, id int64) (*db.Order, error)

	// FindOrderProducts returns the line items of the given orders,
	// each joined with the product it references.
	FindOrderProducts(ctx context.Context, orderIDs []int64) ([]db.OrderProductRow, error)

	// FindProductByID retrieves a product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindProductByID(ctx context.Context, id int64) (*db.Product, error)

	// CreateOrder inserts an order header and returns it with its assigned ID.
	CreateOrder(ctx context.Context, params db.CreateOrderParams) (*db.Order, error)

	// UpdateOrder overwrites the header fields of an existing order.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	UpdateOrder(ctx context.Context, params db.UpdateOrderParams) (*db.Order, error)

	// CreateOrderProduct inserts a single line item.
	CreateOrderProduct(ctx context.Context, params db.CreateOrderProductParams) (*db.OrderProduct, error)

	// DeleteOrderProducts removes every line item of the order and returns how many were removed.
	DeleteOrderProducts(ctx context.Context, orderID int64) (int64, error)

	// DeleteOrder removes the order header and returns how many rows were removed.
	DeleteOrder(ctx context.Context, id int64) (int64, error)
}

// OrderStore is an interface for order storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type OrderStore interface {
	Queries

	// WithTransaction runs fn inside a single transaction.
	// The transaction is committed if fn returns nil and rolled back otherwise;
	// the error returned by fn is passed through unchanged.
	WithTransaction(ctx context.Context, fn func(q Queries) error) error
}
