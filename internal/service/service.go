// Package service provides the implementation of order-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/messaging"
	"github.com/abgdnv/coffeeshop/internal/messaging/events"
	"github.com/abgdnv/coffeeshop/internal/store"
	"github.com/abgdnv/coffeeshop/internal/store/db"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// OrderService defines the methods for managing orders.
// It abstracts the underlying business logic and data access.
type OrderService interface {
	// FindAll returns every order with its line items and their products.
	// Returns an empty slice if no orders exist.
	FindAll(ctx context.Context) ([]OrderDto, error)

	// FindByID retrieves a single order by its unique identifier.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	FindByID(ctx context.Context, id int64) (*OrderDto, error)

	// Create adds a new order and its line items in a single transaction.
	// Returns ErrProductNotFound if any line item references an unknown product.
	Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error)

	// Update replaces the header fields and the whole line-item set of an existing order.
	// Returns ErrOrderNotFound if no order exists with the given ID.
	Update(ctx context.Context, order OrderUpdateDto) (*OrderDto, error)

	// Delete removes an order together with its line items.
	// Deleting an order that does not exist is a no-op.
	Delete(ctx context.Context, id int64) error
}

// Service implements OrderService and provides methods to manage orders.
type Service struct {
	orderStore store.OrderStore
	publisher  messaging.Publisher
	logger     *slog.Logger

	ordersCreated metric.Int64Counter
	ordersUpdated metric.Int64Counter
	ordersDeleted metric.Int64Counter
}

var _ OrderService = (*Service)(nil)

// NewService creates a new instance of OrderService with the provided orderStore.
func NewService(orderStore store.OrderStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	meter := otel.Meter("order-service")
	return &Service{
		orderStore:    orderStore,
		publisher:     publisher,
		logger:        logger.With("component", "service"),
		ordersCreated: mustCounter(meter, "orders_created", "Total number of created orders"),
		ordersUpdated: mustCounter(meter, "orders_updated", "Total number of updated orders"),
		ordersDeleted: mustCounter(meter, "orders_deleted", "Total number of deleted orders"),
	}
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// OrderDto represents the data transfer object for an order.
type OrderDto struct {
	ID          int64             `json:"id"`
	UserID      int64             `json:"user_id"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   string            `json:"created_at,omitempty"`
	UpdatedAt   string            `json:"updated_at,omitempty"`
	Items       []OrderProductDto `json:"items"`
}

// OrderProductDto is a line item of an order.
type OrderProductDto struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Product   ProductDto      `json:"product"`
	Quantity  int32           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type ProductDto struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderCreateDto represents the data transfer object for creating a new order.
type OrderCreateDto struct {
	UserID int64                   `json:"user_id" validate:"required,gt=0"`
	Items  []OrderProductCreateDto `json:"items"   validate:"required,gt=0,dive"`
}

// OrderProductCreateDto represents a requested line item.
type OrderProductCreateDto struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity"   validate:"required,min=1"`
}

// OrderUpdateDto represents the data transfer object for updating an existing order.
// Items replaces the current line items of the order.
type OrderUpdateDto struct {
	ID     int64                   `json:"id"      validate:"required,gt=0"`
	UserID int64                   `json:"user_id" validate:"required,gt=0"`
	Items  []OrderProductCreateDto `json:"items"   validate:"required,gt=0,dive"`
}

// line is a requested line item with its product resolved.
type line struct {
	product  db.Product
	quantity int32
	subtotal decimal.Decimal
}

// FindAll retrieves every order with its line items expanded.
func (s *Service) FindAll(ctx context.Context) ([]OrderDto, error) {
	orders, err := s.orderStore.ListOrders(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list orders", "error", err)
		return nil, err
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	rows, err := s.orderStore.FindOrderProducts(ctx, ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load order products", "error", err)
		return nil, err
	}
	byOrder := make(map[int64][]db.OrderProductRow, len(orders))
	for _, row := range rows {
		byOrder[row.OrderProduct.OrderID] = append(byOrder[row.OrderProduct.OrderID], row)
	}

	orderDtos := make([]OrderDto, 0, len(orders))
	for i := range orders {
		orderDtos = append(orderDtos, *toDto(&orders[i], byOrder[orders[i].ID]))
	}
	return orderDtos, nil
}

// FindByID retrieves an order by its ID and returns it as a OrderDto.
func (s *Service) FindByID(ctx context.Context, id int64) (*OrderDto, error) {
	order, err := s.orderStore.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ordererrors.ErrOrderNotFound) {
			s.logger.WarnContext(ctx, "Order not found", "ID", id)
		} else {
			s.logger.ErrorContext(ctx, "Failed to find order", "ID", id, "error", err)
		}
		return nil, err
	}
	rows, err := s.orderStore.FindOrderProducts(ctx, []int64{id})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load order products", "ID", id, "error", err)
		return nil, err
	}
	return toDto(order, rows), nil
}

// Create creates a new order and returns it as a OrderDto.
// Either the order and all of its line items are stored, or nothing is.
func (s *Service) Create(ctx context.Context, order OrderCreateDto) (*OrderDto, error) {
	var (
		created *db.Order
		rows    []db.OrderProductRow
	)
	err := s.orderStore.WithTransaction(ctx, func(q store.Queries) error {
		header, err := q.CreateOrder(ctx, db.CreateOrderParams{UserID: order.UserID, TotalAmount: decimal.Zero})
		if err != nil {
			return err
		}
		lines, total, err := resolveLines(ctx, q, order.Items)
		if err != nil {
			return err
		}
		created, err = q.UpdateOrder(ctx, db.UpdateOrderParams{ID: header.ID, UserID: header.UserID, TotalAmount: total})
		if err != nil {
			return err
		}
		rows, err = insertLines(ctx, q, created.ID, lines)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "Failed to create order", err, "UserID", order.UserID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order created", "ID", created.ID, "total", created.TotalAmount.StringFixed(2))
	s.ordersCreated.Add(ctx, 1)
	s.publish(ctx, events.OrderCreatedEvent{
		OrderID:     created.ID,
		UserID:      created.UserID,
		TotalAmount: created.TotalAmount,
		Items:       len(rows),
		CreatedAt:   timeOrNow(created.CreatedAt),
	})
	return toDto(created, rows), nil
}

// Update overwrites the order header and replaces all of its line items.
func (s *Service) Update(ctx context.Context, order OrderUpdateDto) (*OrderDto, error) {
	var (
		updated *db.Order
		rows    []db.OrderProductRow
	)
	err := s.orderStore.WithTransaction(ctx, func(q store.Queries) error {
		if _, err := q.FindOrderByID(ctx, order.ID); err != nil {
			return err
		}
		if _, err := q.DeleteOrderProducts(ctx, order.ID); err != nil {
			return err
		}
		lines, total, err := resolveLines(ctx, q, order.Items)
		if err != nil {
			return err
		}
		updated, err = q.UpdateOrder(ctx, db.UpdateOrderParams{ID: order.ID, UserID: order.UserID, TotalAmount: total})
		if err != nil {
			return err
		}
		rows, err = insertLines(ctx, q, updated.ID, lines)
		return err
	})
	if err != nil {
		if errors.Is(err, ordererrors.ErrOrderNotFound) {
			s.logger.WarnContext(ctx, "Order not found for update", "ID", order.ID)
			return nil, err
		}
		s.logFailure(ctx, "Failed to update order", err, "ID", order.ID)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order updated", "ID", updated.ID, "total", updated.TotalAmount.StringFixed(2))
	s.ordersUpdated.Add(ctx, 1)
	s.publish(ctx, events.OrderUpdatedEvent{
		OrderID:     updated.ID,
		UserID:      updated.UserID,
		TotalAmount: updated.TotalAmount,
		Items:       len(rows),
		UpdatedAt:   timeOrNow(updated.UpdatedAt),
	})
	return toDto(updated, rows), nil
}

// Delete removes the order and its line items. A missing order is logged and ignored.
func (s *Service) Delete(ctx context.Context, id int64) error {
	found := true
	err := s.orderStore.WithTransaction(ctx, func(q store.Queries) error {
		if _, err := q.FindOrderByID(ctx, id); err != nil {
			if errors.Is(err, ordererrors.ErrOrderNotFound) {
				found = false
				return nil
			}
			return err
		}
		if _, err := q.DeleteOrderProducts(ctx, id); err != nil {
			return err
		}
		_, err := q.DeleteOrder(ctx, id)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete order", "ID", id, "error", err)
		return err
	}
	if !found {
		s.logger.WarnContext(ctx, "Order not found for deletion", "ID", id)
		return nil
	}

	s.logger.InfoContext(ctx, "Order deleted", "ID", id)
	s.ordersDeleted.Add(ctx, 1)
	s.publish(ctx, events.OrderDeletedEvent{OrderID: id, DeletedAt: time.Now().UTC()})
	return nil
}

// resolveLines looks up the product of every requested item and computes subtotals and the order total.
func resolveLines(ctx context.Context, q store.Queries, items []OrderProductCreateDto) ([]line, decimal.Decimal, error) {
	total := decimal.Zero
	lines := make([]line, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, fmt.Errorf("product %d: %w", item.ProductID, ordererrors.ErrInvalidQuantity)
		}
		product, err := q.FindProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, ordererrors.ErrProductNotFound) {
				return nil, decimal.Zero, fmt.Errorf("product %d: %w", item.ProductID, err)
			}
			return nil, decimal.Zero, err
		}
		subtotal := product.Price.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)
		lines = append(lines, line{product: *product, quantity: item.Quantity, subtotal: subtotal})
	}
	return lines, total, nil
}

func insertLines(ctx context.Context, q store.Queries, orderID int64, lines []line) ([]db.OrderProductRow, error) {
	rows := make([]db.OrderProductRow, 0, len(lines))
	for _, l := range lines {
		op, err := q.CreateOrderProduct(ctx, db.CreateOrderProductParams{
			OrderID:   orderID,
			ProductID: l.product.ID,
			Quantity:  l.quantity,
			Subtotal:  l.subtotal,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, db.OrderProductRow{OrderProduct: *op, Product: l.product})
	}
	return rows, nil
}

// logFailure logs a rejected request at warn level and anything else at error level.
func (s *Service) logFailure(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if errors.Is(err, ordererrors.ErrProductNotFound) || errors.Is(err, ordererrors.ErrInvalidQuantity) {
		s.logger.WarnContext(ctx, msg, args...)
		return
	}
	s.logger.ErrorContext(ctx, msg, args...)
}

// publish sends the event once the transaction has been committed. Failures are only logged.
func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event", "subject", event.Subject(), "error", err)
	}
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return *t
}

// toDto converts a db.Order and its line items to a OrderDto.
func toDto(order *db.Order, rows []db.OrderProductRow) *OrderDto {
	if order == nil {
		return nil
	}
	items := make([]OrderProductDto, 0, len(rows))
	for _, row := range rows {
		items = append(items, OrderProductDto{
			ID:        row.OrderProduct.ID,
			OrderID:   row.OrderProduct.OrderID,
			ProductID: row.OrderProduct.ProductID,
			Product: ProductDto{
				ID:    row.Product.ID,
				Name:  row.Product.Name,
				Price: row.Product.Price,
			},
			Quantity: row.OrderProduct.Quantity,
			Subtotal: row.OrderProduct.Subtotal,
		})
	}
	return &OrderDto{
		ID:          order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
		Items:       items,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
