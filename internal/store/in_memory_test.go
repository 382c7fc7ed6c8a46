package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/store/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMenuStore() *InMemory {
	return NewInMemoryStore(
		db.Product{ID: 1, Name: "Espresso", Price: decimal.RequireFromString("3.50")},
		db.Product{ID: 2, Name: "Cappuccino", Price: decimal.RequireFromString("5.00")},
	)
}

// totalOf sums the subtotals of the given rows.
func totalOf(rows []db.OrderProductRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.OrderProduct.Subtotal)
	}
	return total
}

func TestInMemory_CreateAndFind(t *testing.T) {
	// given
	s := newMenuStore()
	ctx := context.Background()

	// when
	order, err := s.CreateOrder(ctx, db.CreateOrderParams{UserID: 7, TotalAmount: decimal.RequireFromString("12")})
	require.NoError(t, err)
	_, err = s.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 1, Quantity: 2, Subtotal: decimal.RequireFromString("7")})
	require.NoError(t, err)
	_, err = s.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 2, Quantity: 1, Subtotal: decimal.RequireFromString("5")})
	require.NoError(t, err)

	// then
	found, err := s.FindOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order, found)
	rows, err := s.FindOrderProducts(ctx, []int64{order.ID})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Espresso", rows[0].Product.Name)
	assert.Equal(t, "Cappuccino", rows[1].Product.Name)
	assert.True(t, totalOf(rows).Equal(found.TotalAmount))
}

func TestInMemory_Errors(t *testing.T) {
	s := newMenuStore()
	ctx := context.Background()
	order, err := s.CreateOrder(ctx, db.CreateOrderParams{UserID: 1})
	require.NoError(t, err)
	_, err = s.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 1, Quantity: 1, Subtotal: decimal.RequireFromString("3.5")})
	require.NoError(t, err)

	testCases := []struct {
		name        string
		call        func() error
		expectError error
	}{
		{
			name:        "order not found",
			call:        func() error { _, err := s.FindOrderByID(ctx, 99); return err },
			expectError: ordererrors.ErrOrderNotFound,
		},
		{
			name:        "product not found",
			call:        func() error { _, err := s.FindProductByID(ctx, 99); return err },
			expectError: ordererrors.ErrProductNotFound,
		},
		{
			name: "update missing order",
			call: func() error {
				_, err := s.UpdateOrder(ctx, db.UpdateOrderParams{ID: 99, UserID: 1})
				return err
			},
			expectError: ordererrors.ErrOrderNotFound,
		},
		{
			name: "line item for unknown product",
			call: func() error {
				_, err := s.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 99, Quantity: 1})
				return err
			},
			expectError: ordererrors.ErrCreateOrderProduct,
		},
		{
			name: "line item with zero quantity",
			call: func() error {
				_, err := s.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 1, Quantity: 0})
				return err
			},
			expectError: ordererrors.ErrCreateOrderProduct,
		},
		{
			name:        "delete order with line items",
			call:        func() error { _, err := s.DeleteOrder(ctx, order.ID); return err },
			expectError: ordererrors.ErrDeleteOrder,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.call(), tc.expectError)
		})
	}
}

func TestInMemory_WithTransaction(t *testing.T) {
	errAbort := errors.New("abort")
	testCases := []struct {
		name          string
		fnErr         error
		expectOrders  int
		expectNextIDs int64
	}{
		{name: "commit", fnErr: nil, expectOrders: 1, expectNextIDs: 2},
		{name: "rollback", fnErr: errAbort, expectOrders: 0, expectNextIDs: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := newMenuStore()
			ctx := context.Background()

			// when
			err := s.WithTransaction(ctx, func(q Queries) error {
				order, err := q.CreateOrder(ctx, db.CreateOrderParams{UserID: 7})
				if err != nil {
					return err
				}
				if _, err := q.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 2, Quantity: 1}); err != nil {
					return err
				}
				return tc.fnErr
			})

			// then
			assert.ErrorIs(t, err, tc.fnErr)
			orders, err := s.ListOrders(ctx)
			require.NoError(t, err)
			assert.Len(t, orders, tc.expectOrders)
			next, err := s.CreateOrder(ctx, db.CreateOrderParams{UserID: 8})
			require.NoError(t, err)
			assert.Equal(t, tc.expectNextIDs, next.ID)
		})
	}
}

func TestInMemory_ConcurrentTransactions(t *testing.T) {
	// given
	s := newMenuStore()
	ctx := context.Background()
	const workers = 20

	// when
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTransaction(ctx, func(q Queries) error {
				order, err := q.CreateOrder(ctx, db.CreateOrderParams{UserID: 1})
				if err != nil {
					return err
				}
				_, err = q.CreateOrderProduct(ctx, db.CreateOrderProductParams{OrderID: order.ID, ProductID: 1, Quantity: 1})
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// then
	orders, err := s.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, workers)
	for i, o := range orders {
		assert.Equal(t, int64(i+1), o.ID)
	}
}

func TestInMemory_CanceledContext(t *testing.T) {
	// given
	s := newMenuStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	_, err := s.ListOrders(ctx)

	// then
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ordererrors.ErrStore)
}
