package nats

import (
	"context"
	"fmt"

	"github.com/abgdnv/coffeeshop/internal/messaging"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// JetStreamPublisher is the subset of jetstream.JetStream used to publish events.
type JetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NatsPublisher publishes order events to JetStream.
// Each message carries the trace context of the request in its headers.
type NatsPublisher struct {
	js    JetStreamPublisher
	newID func() string
}

var _ messaging.Publisher = (*NatsPublisher)(nil)

func NewNatsPublisher(js JetStreamPublisher) *NatsPublisher {
	return &NatsPublisher{js: js, newID: uuid.NewString}
}

func (p *NatsPublisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	msg := nats.NewMsg(event.Subject())
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if _, err = p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(p.newID())); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Subject(), err)
	}
	return nil
}
