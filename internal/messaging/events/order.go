// Package events contains the payloads of order domain events.
package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/coffeeshop/internal/messaging"
	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       int             `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (o OrderCreatedEvent) Subject() string {
	return messaging.OrdersCreatedSubject
}

func (o OrderCreatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderUpdatedEvent struct {
	OrderID     int64           `json:"order_id"`
	UserID      int64           `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       int             `json:"items"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (o OrderUpdatedEvent) Subject() string {
	return messaging.OrdersUpdatedSubject
}

func (o OrderUpdatedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}

type OrderDeletedEvent struct {
	OrderID   int64     `json:"order_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

func (o OrderDeletedEvent) Subject() string {
	return messaging.OrdersDeletedSubject
}

func (o OrderDeletedEvent) Payload() ([]byte, error) {
	return json.Marshal(o)
}
