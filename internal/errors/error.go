// Package errors provides the error kinds returned by order operations.
package errors

import "errors"

// ErrOrderNotFound signals absence of an order. It is not a store failure.
var ErrOrderNotFound = errors.New("order not found")

// ErrProductNotFound signals that a line item references a product that does not exist.
var ErrProductNotFound = errors.New("product not found")

var ErrInvalidQuantity = errors.New("quantity must be greater than zero")

// ErrStore is the root of every persistence failure.
var ErrStore = errors.New("store failure")

var ErrCreateOrder = storeErr("failed to create order")
var ErrCreateOrderProduct = storeErr("failed to create order product")
var ErrUpdateOrder = storeErr("failed to update order")
var ErrDeleteOrder = storeErr("failed to delete order")
var ErrDeleteOrderProducts = storeErr("failed to delete order products")

var ErrFailedToFindOrder = storeErr("failed to find order")
var ErrFailedToFindOrders = storeErr("failed to find orders")
var ErrFailedToFindOrderProducts = storeErr("failed to find order products")
var ErrFailedToFindProduct = storeErr("failed to find product")

var ErrTransactionBegin = storeErr("failed to begin transaction")
var ErrTransactionCommit = storeErr("failed to commit transaction")
var ErrTransactionRollback = storeErr("failed to rollback transaction")

// storeError is a store failure kind that matches both itself and ErrStore.
type storeError struct {
	msg string
}

func storeErr(msg string) error {
	return &storeError{msg: msg}
}

func (e *storeError) Error() string {
	return e.msg
}

func (e *storeError) Is(target error) bool {
	return target == ErrStore
}
