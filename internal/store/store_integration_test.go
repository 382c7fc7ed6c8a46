package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/migrations"
	"github.com/abgdnv/coffeeshop/internal/store/db"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "ORDER_SVC_SKIP_INTEGRATION_TESTS"

// OrderStoreSuite is a test suite for the PgStore implementation.
type OrderStoreSuite struct {
	suite.Suite                             // Embedding testify suite for structured testing
	pgContainer *postgres.PostgresContainer // PostgreSQL container for integration tests
	dbPool      *pgxpool.Pool               // PostgreSQL connection pool for integration tests
	store       OrderStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies the embedded migrations.
func (s *OrderStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// 1. Start a PostgreSQL container with the specified configuration. Wait for the container to be ready.
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("coffeeshop"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	// 2. Get the connection string from the container
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	// 3. create a new pgxpool instance using the connection string
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	// 4. Database migration
	require.NoError(s.T(), migrations.Up(connStr, s.logger), "Failed to apply migrations")

	s.store = NewPgStore(s.dbPool)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *OrderStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest removes all orders. The seeded products are kept.
func (s *OrderStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE order_products, orders RESTART IDENTITY")
	require.NoError(s.T(), err, "Failed to truncate order tables")
}

func TestOrderStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(OrderStoreSuite))
}

// createOrder stores an order with one line item per product/quantity pair.
func (s *OrderStoreSuite) createOrder(userID int64, lines map[int64]int32) *db.Order {
	s.T().Helper()
	var order *db.Order
	err := s.store.WithTransaction(s.ctx, func(q Queries) error {
		var err error
		total := decimal.Zero
		order, err = q.CreateOrder(s.ctx, db.CreateOrderParams{UserID: userID, TotalAmount: decimal.Zero})
		if err != nil {
			return err
		}
		for productID, qty := range lines {
			product, err := q.FindProductByID(s.ctx, productID)
			if err != nil {
				return err
			}
			subtotal := product.Price.Mul(decimal.NewFromInt32(qty))
			total = total.Add(subtotal)
			if _, err := q.CreateOrderProduct(s.ctx, db.CreateOrderProductParams{
				OrderID: order.ID, ProductID: productID, Quantity: qty, Subtotal: subtotal,
			}); err != nil {
				return err
			}
		}
		order, err = q.UpdateOrder(s.ctx, db.UpdateOrderParams{ID: order.ID, UserID: userID, TotalAmount: total})
		return err
	})
	require.NoError(s.T(), err)
	return order
}

func (s *OrderStoreSuite) TestFindProductByID() {
	// when
	product, err := s.store.FindProductByID(s.ctx, 1)
	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Espresso", product.Name)
	assert.Equal(s.T(), "3.50", product.Price.StringFixed(2))

	// when
	missing, err := s.store.FindProductByID(s.ctx, 9999)
	// then
	assert.ErrorIs(s.T(), err, ordererrors.ErrProductNotFound)
	assert.Nil(s.T(), missing)
}

func (s *OrderStoreSuite) TestCreateAndFindOrder() {
	// given
	created := s.createOrder(7, map[int64]int32{1: 2, 2: 1})

	// when
	found, err := s.store.FindOrderByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(7), found.UserID)
	assert.Equal(s.T(), "12.00", found.TotalAmount.StringFixed(2))
	require.NotNil(s.T(), found.CreatedAt)
	require.NotNil(s.T(), found.UpdatedAt)

	rows, err := s.store.FindOrderProducts(s.ctx, []int64{created.ID})
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 2)
	names := make(map[string]string)
	for _, row := range rows {
		assert.Equal(s.T(), created.ID, row.OrderProduct.OrderID)
		names[row.Product.Name] = row.OrderProduct.Subtotal.StringFixed(2)
	}
	assert.Equal(s.T(), map[string]string{"Espresso": "7.00", "Cappuccino": "5.00"}, names)
}

func (s *OrderStoreSuite) TestListOrders() {
	// given
	empty, err := s.store.ListOrders(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), empty)
	first := s.createOrder(1, map[int64]int32{3: 1})
	second := s.createOrder(2, map[int64]int32{4: 2})

	// when
	orders, err := s.store.ListOrders(s.ctx)

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), orders, 2)
	assert.Equal(s.T(), first.ID, orders[0].ID)
	assert.Equal(s.T(), second.ID, orders[1].ID)

	rows, err := s.store.FindOrderProducts(s.ctx, []int64{first.ID, second.ID})
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 2)
	assert.Equal(s.T(), first.ID, rows[0].OrderProduct.OrderID)
	assert.Equal(s.T(), second.ID, rows[1].OrderProduct.OrderID)
}

func (s *OrderStoreSuite) TestNotFound() {
	// when
	order, err := s.store.FindOrderByID(s.ctx, 404)
	// then
	assert.ErrorIs(s.T(), err, ordererrors.ErrOrderNotFound)
	assert.NotErrorIs(s.T(), err, ordererrors.ErrStore)
	assert.Nil(s.T(), order)

	// when
	updated, err := s.store.UpdateOrder(s.ctx, db.UpdateOrderParams{ID: 404, UserID: 1, TotalAmount: decimal.Zero})
	// then
	assert.ErrorIs(s.T(), err, ordererrors.ErrOrderNotFound)
	assert.Nil(s.T(), updated)

	// when
	count, err := s.store.DeleteOrder(s.ctx, 404)
	// then
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}

func (s *OrderStoreSuite) TestWithTransaction_RollsBack() {
	// given
	errAbort := errors.New("abort")

	// when
	err := s.store.WithTransaction(s.ctx, func(q Queries) error {
		order, err := q.CreateOrder(s.ctx, db.CreateOrderParams{UserID: 7, TotalAmount: decimal.Zero})
		if err != nil {
			return err
		}
		if _, err := q.CreateOrderProduct(s.ctx, db.CreateOrderProductParams{
			OrderID: order.ID, ProductID: 1, Quantity: 1, Subtotal: decimal.RequireFromString("3.50"),
		}); err != nil {
			return err
		}
		_, err = q.FindProductByID(s.ctx, 9999)
		if errors.Is(err, ordererrors.ErrProductNotFound) {
			return errAbort
		}
		return err
	})

	// then
	assert.ErrorIs(s.T(), err, errAbort)
	orders, err := s.store.ListOrders(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), orders)
	var count int
	require.NoError(s.T(), s.dbPool.QueryRow(s.ctx, "SELECT count(*) FROM order_products").Scan(&count))
	assert.Zero(s.T(), count)
}

func (s *OrderStoreSuite) TestConstraints() {
	// given
	order := s.createOrder(7, map[int64]int32{1: 1})

	// when
	_, err := s.store.CreateOrderProduct(s.ctx, db.CreateOrderProductParams{
		OrderID: order.ID, ProductID: 1, Quantity: 0, Subtotal: decimal.Zero,
	})
	// then
	assert.ErrorIs(s.T(), err, ordererrors.ErrCreateOrderProduct)
	assert.ErrorIs(s.T(), err, ordererrors.ErrStore)

	// when
	_, err = s.store.DeleteOrder(s.ctx, order.ID)
	// then
	assert.ErrorIs(s.T(), err, ordererrors.ErrDeleteOrder, "line items must be removed first")
}

func (s *OrderStoreSuite) TestDelete() {
	// given
	order := s.createOrder(7, map[int64]int32{1: 1, 2: 3})

	// when
	var removedItems, removedOrders int64
	err := s.store.WithTransaction(s.ctx, func(q Queries) error {
		var err error
		if removedItems, err = q.DeleteOrderProducts(s.ctx, order.ID); err != nil {
			return err
		}
		removedOrders, err = q.DeleteOrder(s.ctx, order.ID)
		return err
	})

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), removedItems)
	assert.Equal(s.T(), int64(1), removedOrders)
	_, err = s.store.FindOrderByID(s.ctx, order.ID)
	assert.ErrorIs(s.T(), err, ordererrors.ErrOrderNotFound)
}
