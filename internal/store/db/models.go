package db

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          int64
	UserID      int64
	TotalAmount decimal.Decimal
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

type OrderProduct struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int32
	Subtotal  decimal.Decimal
}

// Product is read-only for the order service.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// OrderProductRow is a line item joined with the product it references.
type OrderProductRow struct {
	OrderProduct OrderProduct
	Product      Product
}
