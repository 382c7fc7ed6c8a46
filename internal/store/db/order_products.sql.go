package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const createOrderProduct = `INSERT INTO order_products (order_id, product_id, quantity, subtotal)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, product_id, quantity, subtotal::text`

type CreateOrderProductParams struct {
	OrderID   int64
	ProductID int64
	Quantity  int32
	Subtotal  decimal.Decimal
}

func (q *Queries) CreateOrderProduct(ctx context.Context, arg CreateOrderProductParams) (OrderProduct, error) {
	row := q.db.QueryRow(ctx, createOrderProduct, arg.OrderID, arg.ProductID, arg.Quantity, arg.Subtotal.String())
	var i OrderProduct
	var subtotal string
	if err := row.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.Quantity, &subtotal); err != nil {
		return i, err
	}
	var err error
	i.Subtotal, err = parseNumeric("subtotal", subtotal)
	return i, err
}

const findOrderProductsByOrderIDs = `SELECT op.id, op.order_id, op.product_id, op.quantity, op.subtotal::text,
       p.id, p.name, p.price::text
FROM order_products op
JOIN products p ON p.id = op.product_id
WHERE op.order_id = ANY($1::bigint[])
ORDER BY op.order_id, op.id`

func (q *Queries) FindOrderProductsByOrderIDs(ctx context.Context, orderIDs []int64) ([]OrderProductRow, error) {
	rows, err := q.db.Query(ctx, findOrderProductsByOrderIDs, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderProductRow{}
	for rows.Next() {
		var i OrderProductRow
		var subtotal, price string
		if err := rows.Scan(
			&i.OrderProduct.ID,
			&i.OrderProduct.OrderID,
			&i.OrderProduct.ProductID,
			&i.OrderProduct.Quantity,
			&subtotal,
			&i.Product.ID,
			&i.Product.Name,
			&price,
		); err != nil {
			return nil, err
		}
		if i.OrderProduct.Subtotal, err = parseNumeric("subtotal", subtotal); err != nil {
			return nil, err
		}
		if i.Product.Price, err = parseNumeric("price", price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteOrderProductsByOrderID = `DELETE FROM order_products
WHERE order_id = $1`

func (q *Queries) DeleteOrderProductsByOrderID(ctx context.Context, orderID int64) (int64, error) {
	result, err := q.db.Exec(ctx, deleteOrderProductsByOrderID, orderID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const findProductByID = `SELECT id, name, price::text
FROM products
WHERE id = $1`

func (q *Queries) FindProductByID(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRow(ctx, findProductByID, id)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (Product, error) {
	var i Product
	var price string
	if err := row.Scan(&i.ID, &i.Name, &price); err != nil {
		return i, err
	}
	var err error
	i.Price, err = parseNumeric("price", price)
	return i, err
}

// parseNumeric converts a NUMERIC column selected as text into a decimal.
func parseNumeric(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, value, err)
	}
	return d, nil
}
