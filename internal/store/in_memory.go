package store

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/store/db"
)

// InMemory implements OrderStore using in-memory maps.
// Transactions are serialized and roll back by restoring a snapshot taken at begin.
// Writes issued outside WithTransaction must not run concurrently with a transaction.
type InMemory struct {
	txMu  sync.Mutex
	mu    sync.RWMutex
	state memState
	now   func() time.Time
}

var _ OrderStore = (*InMemory)(nil)

type memState struct {
	orders             map[int64]db.Order
	orderProducts      map[int64]db.OrderProduct
	products           map[int64]db.Product
	nextOrderID        int64
	nextOrderProductID int64
}

func (s memState) clone() memState {
	return memState{
		orders:             maps.Clone(s.orders),
		orderProducts:      maps.Clone(s.orderProducts),
		products:           maps.Clone(s.products),
		nextOrderID:        s.nextOrderID,
		nextOrderProductID: s.nextOrderProductID,
	}
}

// NewInMemoryStore creates a new instance of OrderStore holding the given product catalog.
func NewInMemoryStore(products ...db.Product) *InMemory {
	catalog := make(map[int64]db.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}
	return &InMemory{
		state: memState{
			orders:             make(map[int64]db.Order),
			orderProducts:      make(map[int64]db.OrderProduct),
			products:           catalog,
			nextOrderID:        1,
			nextOrderProductID: 1,
		},
		now: time.Now,
	}
}

func (s *InMemory) WithTransaction(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.state = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *InMemory) ListOrders(ctx context.Context) ([]db.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrders, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]db.Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (s *InMemory) FindOrderByID(ctx context.Context, id int64) (*db.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrder, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.state.orders[id]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	return &order, nil
}

func (s *InMemory) FindOrderProducts(ctx context.Context, orderIDs []int64) ([]db.OrderProductRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindOrderProducts, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = struct{}{}
	}
	rows := []db.OrderProductRow{}
	for _, op := range s.state.orderProducts {
		if _, ok := wanted[op.OrderID]; !ok {
			continue
		}
		rows = append(rows, db.OrderProductRow{OrderProduct: op, Product: s.state.products[op.ProductID]})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OrderProduct.OrderID != rows[j].OrderProduct.OrderID {
			return rows[i].OrderProduct.OrderID < rows[j].OrderProduct.OrderID
		}
		return rows[i].OrderProduct.ID < rows[j].OrderProduct.ID
	})
	return rows, nil
}

func (s *InMemory) FindProductByID(ctx context.Context, id int64) (*db.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrFailedToFindProduct, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.state.products[id]
	if !ok {
		return nil, ordererrors.ErrProductNotFound
	}
	return &product, nil
}

func (s *InMemory) CreateOrder(ctx context.Context, params db.CreateOrderParams) (*db.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrCreateOrder, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	order := db.Order{
		ID:          s.state.nextOrderID,
		UserID:      params.UserID,
		TotalAmount: params.TotalAmount.Round(2),
		CreatedAt:   &now,
		UpdatedAt:   &now,
	}
	s.state.orders[order.ID] = order
	s.state.nextOrderID++
	return &order, nil
}

func (s *InMemory) UpdateOrder(ctx context.Context, params db.UpdateOrderParams) (*db.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrUpdateOrder, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.state.orders[params.ID]
	if !ok {
		return nil, ordererrors.ErrOrderNotFound
	}
	now := s.now()
	order.UserID = params.UserID
	order.TotalAmount = params.TotalAmount.Round(2)
	order.UpdatedAt = &now
	s.state.orders[order.ID] = order
	return &order, nil
}

func (s *InMemory) CreateOrderProduct(ctx context.Context, params db.CreateOrderProductParams) (*db.OrderProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ordererrors.ErrCreateOrderProduct, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// Mirror the constraints of the order_products table.
	if _, ok := s.state.orders[params.OrderID]; !ok {
		return nil, fmt.Errorf("%w: order %d does not exist", ordererrors.ErrCreateOrderProduct, params.OrderID)
	}
	if _, ok := s.state.products[params.ProductID]; !ok {
		return nil, fmt.Errorf("%w: product %d does not exist", ordererrors.ErrCreateOrderProduct, params.ProductID)
	}
	if params.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity %d", ordererrors.ErrCreateOrderProduct, params.Quantity)
	}

	item := db.OrderProduct{
		ID:        s.state.nextOrderProductID,
		OrderID:   params.OrderID,
		ProductID: params.ProductID,
		Quantity:  params.Quantity,
		Subtotal:  params.Subtotal.Round(2),
	}
	s.state.orderProducts[item.ID] = item
	s.state.nextOrderProductID++
	return &item, nil
}

func (s *InMemory) DeleteOrderProducts(ctx context.Context, orderID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ordererrors.ErrDeleteOrderProducts, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, op := range s.state.orderProducts {
		if op.OrderID == orderID {
			delete(s.state.orderProducts, id)
			count++
		}
	}
	return count, nil
}

func (s *InMemory) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ordererrors.ErrDeleteOrder, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.orders[id]; !ok {
		return 0, nil
	}
	for _, op := range s.state.orderProducts {
		if op.OrderID == id {
			return 0, fmt.Errorf("%w: order %d is still referenced by order product %d", ordererrors.ErrDeleteOrder, id, op.ID)
		}
	}
	delete(s.state.orders, id)
	return 1, nil
}
