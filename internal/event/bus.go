package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc"

	"github.com/kazz187/taskdeps/pkg/panicerr"
)

// Handler is a function that handles a raw event message.
type Handler func(ctx context.Context, msg *EventMessage) error

// EventHandler is a function that handles typed events.
type EventHandler[T any] func(ctx context.Context, event *Event[T]) error

// Bus is an in-process pub/sub bus. Handlers run on their own
// goroutines so publishers never block on slow subscribers; Wait
// drains in-flight handlers on shutdown.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]namedHandler
	wg       *conc.WaitGroup
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]namedHandler),
		wg:       conc.NewWaitGroup(),
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType EventType, name string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], namedHandler{name: name, fn: fn})
}

// Publish publishes an event, inferring the event type from the data.
func (b *Bus) Publish(ctx context.Context, source string, data any) error {
	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	msg := &EventMessage{
		ID:        ulid.Make().String(),
		Type:      inferEventType(data),
		Timestamp: time.Now(),
		Source:    source,
		Data:      rawData,
	}

	b.mu.RLock()
	handlers := make([]namedHandler, len(b.handlers[msg.Type]))
	copy(handlers, b.handlers[msg.Type])
	b.mu.RUnlock()

	for _, h := range handlers {
		handler := h
		b.wg.Go(func() {
			safe := panicerr.SafeContext(func(ctx context.Context) error {
				return handler.fn(ctx, msg)
			})
			if err := safe(ctx); err != nil {
				slog.Warn("event handler failed",
					slog.String("handler", handler.name),
					slog.String("event_type", string(msg.Type)),
					slog.Any("error", err))
			}
		})
	}
	return nil
}

// Wait blocks until all in-flight handlers have returned.
func (b *Bus) Wait() {
	b.wg.Wait()
}

// SubscribeTyped registers a typed handler (helper function).
func SubscribeTyped[T any](b *Bus, eventType EventType, name string, handler EventHandler[T]) {
	b.Subscribe(eventType, name, func(ctx context.Context, msg *EventMessage) error {
		event, err := FromMessage[T](msg)
		if err != nil {
			return fmt.Errorf("failed to convert message to event: %w", err)
		}
		return handler(ctx, event)
	})
}
