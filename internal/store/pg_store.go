package store

import (
	"context"
	"errors"
	"fmt"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/store/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements OrderStore using PostgreSQL as the data store.
type PgStore struct {
	pgQueries
	db *pgxpool.Pool
}

var _ OrderStore = (*PgStore)(nil)

// NewPgStore creates a new instance of OrderStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{
		pgQueries: pgQueries{q: db.New(dbp)},
		db:        dbp,
	}
}

func (p *PgStore) WithTransaction(ctx context.Context, fn func(q Queries) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, err)
	}
	qtx := pgQueries{q: p.q.WithTx(tx)}

	err = fn(qtx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w: %w (cause: %w)", ordererrors.ErrTransactionRollback, rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionCommit, err)
	}

	return nil
}

// pgQueries translates driver errors into the error kinds of the order service.
type pgQueries struct {
	q *db.Queries
}

func (p pgQueries) ListOrders(ctx context.Context) ([]db.Order, error) {
	orders, err := p.q.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrders, err)
	}
	return orders, nil
}

func (p pgQueries) FindOrderByID(ctx context.Context, id int64) (*db.Order, error) {
	order, err := p.q.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrder, err)
	}
	return &order, nil
}

func (p pgQueries) FindOrderProducts(ctx context.Context, orderIDs []int64) ([]db.OrderProductRow, error) {
	// No need to hit the database for an empty set of orders
	if len(orderIDs) == 0 {
		return []db.OrderProductRow{}, nil
	}
	rows, err := p.q.FindOrderProductsByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrderProducts, err)
	}
	return rows, nil
}

func (p pgQueries) FindProductByID(ctx context.Context, id int64) (*db.Product, error) {
	product, err := p.q.FindProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindProduct, err)
	}
	return &product, nil
}

func (p pgQueries) CreateOrder(ctx context.Context, params db.CreateOrderParams) (*db.Order, error) {
	order, err := p.q.CreateOrder(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrCreateOrder, err)
	}
	return &order, nil
}

func (p pgQueries) UpdateOrder(ctx context.Context, params db.UpdateOrderParams) (*db.Order, error) {
	order, err := p.q.UpdateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ordererrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrUpdateOrder, err)
	}
	return &order, nil
}

func (p pgQueries) CreateOrderProduct(ctx context.Context, params db.CreateOrderProductParams) (*db.OrderProduct, error) {
	item, err := p.q.CreateOrderProduct(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrCreateOrderProduct, err)
	}
	return &item, nil
}

func (p pgQueries) DeleteOrderProducts(ctx context.Context, orderID int64) (int64, error) {
	count, err := p.q.DeleteOrderProductsByOrderID(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ordererrors.ErrDeleteOrderProducts, err)
	}
	return count, nil
}

func (p pgQueries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	count, err := p.q.DeleteOrder(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ordererrors.ErrDeleteOrder, err)
	}
	return count, nil
}
