// Package messaging defines the domain events published by the order service.
package messaging

import (
	"context"
)

const (
	OrdersSubjectPrefix  = "orders."
	OrdersCreatedSubject = OrdersSubjectPrefix + "created"
	OrdersUpdatedSubject = OrdersSubjectPrefix + "updated"
	OrdersDeletedSubject = OrdersSubjectPrefix + "deleted"
)

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards every event. It is used when messaging is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error {
	return nil
}
