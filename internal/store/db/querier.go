package db

import (
	"context"
)

type Querier interface {
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderProduct(ctx context.Context, arg CreateOrderProductParams) (OrderProduct, error)
	DeleteOrder(ctx context.Context, id int64) (int64, error)
	DeleteOrderProductsByOrderID(ctx context.Context, orderID int64) (int64, error)
	FindOrderByID(ctx context.Context, id int64) (Order, error)
	FindOrderProductsByOrderIDs(ctx context.Context, orderIDs []int64) ([]OrderProductRow, error)
	FindProductByID(ctx context.Context, id int64) (Product, error)
	ListOrders(ctx context.Context) ([]Order, error)
	UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error)
}

var _ Querier = (*Queries)(nil)
