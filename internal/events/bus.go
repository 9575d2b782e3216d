package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Event is a broadcast notification delivered to subscribers.
type Event struct {
	Topic   string
	Payload any
}

// Handler reacts to an emitted event. Handlers run synchronously on the
// emitter's goroutine; they must not block.
type Handler func(ctx context.Context, event Event) error

// Bus fans events out to subscribers registered per topic. It replaces the
// page-global change broadcast of a browser storefront: every cart mutation
// emits here and interested displays re-read the store.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the topic. Registration order is delivery order.
func (b *Bus) Subscribe(topic string, handler Handler) error {
	if b == nil {
		return errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	if handler == nil {
		return errors.New("events: handler is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Emit delivers the event to every subscriber of the topic. Handler errors
// are joined and returned, but delivery continues past failures: observers
// are best-effort and must never veto the mutation that triggered them.
func (b *Bus) Emit(ctx context.Context, topic string, payload any) error {
	if b == nil {
		return errors.New("events: bus not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	b.mu.RLock()
	handlers := b.handlers[topic]
	b.mu.RUnlock()

	event := Event{Topic: topic, Payload: payload}
	var joined error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: handler for %s: %w", topic, err))
		}
	}
	return joined
}
