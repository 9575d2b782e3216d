package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chariotlab/atelier-api/internal/events"
)

func TestBusFansOutInOrder(t *testing.T) {
	bus := events.NewBus()
	var order []string

	require.NoError(t, bus.Subscribe(events.TopicCartUpdated, func(_ context.Context, ev events.Event) error {
		order = append(order, "first")
		require.Equal(t, events.TopicCartUpdated, ev.Topic)
		require.Equal(t, "cart-1", ev.Payload)
		return nil
	}))
	require.NoError(t, bus.Subscribe(events.TopicCartUpdated, func(_ context.Context, _ events.Event) error {
		order = append(order, "second")
		return nil
	}))

	require.NoError(t, bus.Emit(context.Background(), events.TopicCartUpdated, "cart-1"))
	require.Equal(t, []string{"first", "second"}, order)
}

func TestBusContinuesPastFailures(t *testing.T) {
	bus := events.NewBus()
	boom := errors.New("boom")
	var delivered bool

	require.NoError(t, bus.Subscribe(events.TopicCartUpdated, func(_ context.Context, _ events.Event) error {
		return boom
	}))
	require.NoError(t, bus.Subscribe(events.TopicCartUpdated, func(_ context.Context, _ events.Event) error {
		delivered = true
		return nil
	}))

	err := bus.Emit(context.Background(), events.TopicCartUpdated, nil)
	require.ErrorIs(t, err, boom)
	require.True(t, delivered, "later subscribers still run after a failure")
}

func TestBusTopicIsolation(t *testing.T) {
	bus := events.NewBus()
	var hits int
	require.NoError(t, bus.Subscribe(events.TopicInvoiceEmitted, func(_ context.Context, _ events.Event) error {
		hits++
		return nil
	}))

	require.NoError(t, bus.Emit(context.Background(), events.TopicCartUpdated, nil))
	require.Zero(t, hits)

	require.NoError(t, bus.Emit(context.Background(), events.TopicInvoiceEmitted, nil))
	require.Equal(t, 1, hits)
}

func TestBusValidation(t *testing.T) {
	bus := events.NewBus()
	require.Error(t, bus.Subscribe("", func(_ context.Context, _ events.Event) error { return nil }))
	require.Error(t, bus.Subscribe(events.TopicCartUpdated, nil))
	require.Error(t, bus.Emit(context.Background(), "", nil))
}
