package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abgdnv/coffeeshop/internal/messaging"
	"github.com/abgdnv/coffeeshop/internal/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type mockJetStream struct {
	msgs []*nats.Msg
	err  error
}

func (m *mockJetStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.msgs = append(m.msgs, msg)
	return &jetstream.PubAck{Stream: "ORDERS", Sequence: uint64(len(m.msgs))}, nil
}

type brokenEvent struct{}

func (brokenEvent) Subject() string { return messaging.OrdersCreatedSubject }

func (brokenEvent) Payload() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestNatsPublisher_Publish(t *testing.T) {
	// given
	otel.SetTextMapPropagator(propagation.TraceContext{})
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	js := &mockJetStream{}
	publisher := NewNatsPublisher(js)
	event := events.OrderCreatedEvent{
		OrderID:     42,
		UserID:      7,
		TotalAmount: decimal.RequireFromString("12.00"),
		Items:       2,
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// when
	err := publisher.Publish(ctx, event)

	// then
	require.NoError(t, err)
	require.Len(t, js.msgs, 1)
	msg := js.msgs[0]
	assert.Equal(t, messaging.OrdersCreatedSubject, msg.Subject)
	assert.Contains(t, msg.Header.Get("traceparent"), traceID.String())

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, float64(42), decoded["order_id"])
	assert.Equal(t, "12", decoded["total_amount"])
}

func TestNatsPublisher_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		js          *mockJetStream
		event       messaging.Event
		expectError string
	}{
		{
			name:        "payload error",
			js:          &mockJetStream{},
			event:       brokenEvent{},
			expectError: "failed to get event payload",
		},
		{
			name:        "broker error",
			js:          &mockJetStream{err: nats.ErrTimeout},
			event:       events.OrderDeletedEvent{OrderID: 1},
			expectError: "failed to publish orders.deleted",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			publisher := NewNatsPublisher(tc.js)
			// when
			err := publisher.Publish(context.Background(), tc.event)
			// then
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectError)
			assert.Empty(t, tc.js.msgs)
		})
	}
}
