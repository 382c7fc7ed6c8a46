package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/abgdnv/coffeeshop/pkg/config"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

type testEvent struct{}

func (testEvent) Subject() string { return OrdersCreatedSubject }

func (testEvent) Payload() ([]byte, error) { return []byte(`{}`), nil }

type countingPublisher struct {
	calls int
	err   error
}

func (c *countingPublisher) Publish(context.Context, Event) error {
	c.calls++
	return c.err
}

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	// given
	next := &countingPublisher{err: errors.New("nats: timeout")}
	cfg := config.CircuitBreakerConfig{ConsecutiveFailures: 3, OpenTimeout: time.Minute}
	publisher := NewBreakerPublisher(next, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// when
	for range 3 {
		err := publisher.Publish(context.Background(), testEvent{})
		assert.ErrorIs(t, err, next.err)
	}
	err := publisher.Publish(context.Background(), testEvent{})

	// then
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, next.calls)
}

func TestBreakerPublisher_PassesThroughOnSuccess(t *testing.T) {
	// given
	next := &countingPublisher{}
	cfg := config.CircuitBreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute}
	publisher := NewBreakerPublisher(next, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// when
	for range 5 {
		assert.NoError(t, publisher.Publish(context.Background(), testEvent{}))
	}

	// then
	assert.Equal(t, 5, next.calls)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), testEvent{}))
}
