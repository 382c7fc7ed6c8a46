package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, total_amount::text, created_at, updated_at`

const createOrder = `INSERT INTO orders (user_id, total_amount)
VALUES ($1, $2)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	UserID      int64
	TotalAmount decimal.Decimal
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder, arg.UserID, arg.TotalAmount.String())
	return scanOrder(row)
}

const findOrderByID = `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1`

func (q *Queries) FindOrderByID(ctx context.Context, id int64) (Order, error) {
	row := q.db.QueryRow(ctx, findOrderByID, id)
	return scanOrder(row)
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders
ORDER BY id`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateOrder = `UPDATE orders
SET user_id = $2, total_amount = $3, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderParams struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrder, arg.ID, arg.UserID, arg.TotalAmount.String())
	return scanOrder(row)
}

const deleteOrder = `DELETE FROM orders
WHERE id = $1`

func (q *Queries) DeleteOrder(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrder, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	var total string
	if err := row.Scan(&i.ID, &i.UserID, &total, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return i, err
	}
	var err error
	i.TotalAmount, err = parseNumeric("total_amount", total)
	return i, err
}
