package eventbus_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datasmith/datasmith/internal/event"
	"github.com/datasmith/datasmith/internal/eventbus"
)

func TestBus_StopDrainsBufferAndExits(t *testing.T) {
	b := eventbus.New(8)
	var seen atomic.Int64
	b.Subscribe("count", eventbus.HandlerFunc(func(ctx context.Context, evt event.DomainEvent) error {
		seen.Add(1)
		return nil
	}))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		b.Publish(ctx, event.DomainEvent{EventType: "test.event"})
	}
	b.Start(ctx)

	// Hangs (or spins dispatching zero-value events) if the consumer
	// does not exit on channel close.
	b.Stop()

	assert.EqualValues(t, 3, seen.Load())
}

func TestBus_PublishDropsWhenBufferFull(t *testing.T) {
	b := eventbus.New(1)
	var seen atomic.Int64
	b.Subscribe("count", eventbus.HandlerFunc(func(ctx context.Context, evt event.DomainEvent) error {
		seen.Add(1)
		return nil
	}))

	ctx := context.Background()
	b.Publish(ctx, event.DomainEvent{EventType: "kept"})
	b.Publish(ctx, event.DomainEvent{EventType: "dropped"})
	b.Start(ctx)
	b.Stop()

	assert.EqualValues(t, 1, seen.Load())
}
