package event

import (
	"sync"

	"github.com/go-arcade/conveyor/pkg/log"
	"github.com/go-arcade/conveyor/pkg/safe"
)

// Wildcard subscribes a handler to every event.
const Wildcard = "*"

// EventBus delivers events synchronously to the handlers registered for their
// name, in registration order. A panicking handler is logged and skipped.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
	logger   log.Logger
}

func NewEventBus(logger log.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]EventHandler),
		logger:   logger,
	}
}

func (eb *EventBus) RegisterHandler(eventName string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventName] = append(eb.handlers[eventName], handler)
}

// Subscribe registers fn for each of the given event names.
func (eb *EventBus) Subscribe(fn func(Event), eventNames ...string) {
	for _, name := range eventNames {
		eb.RegisterHandler(name, HandlerFunc(fn))
	}
}

func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	handlers := make([]EventHandler, 0, len(eb.handlers[event.EventName()])+len(eb.handlers[Wildcard]))
	handlers = append(handlers, eb.handlers[event.EventName()]...)
	handlers = append(handlers, eb.handlers[Wildcard]...)
	eb.mu.RUnlock()

	for _, h := range handlers {
		if err := safe.Do(func() { h.Handle(event) }); err != nil && eb.logger.Log != nil {
			eb.logger.Log.Errorw("event handler failed", "event", event.EventName(), "error", err)
		}
	}
}
