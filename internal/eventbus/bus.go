// Package eventbus is a named-event publish/subscribe registry used to
// decouple site components: the build pipeline announces finished pages,
// the dev server listens for them, and the live-reload client's page load
// is re-published as EventPageReady.
//
// Handlers are invoked synchronously on the publisher's goroutine, in
// subscription order.
package eventbus

import "sync"

// Event names published by jaff itself.
const (
	EventPageReady     = "pageReady"
	EventPageBuilt     = "pageBuilt"
	EventBuildFailed   = "buildFailed"
	EventBuildFinished = "buildFinished"
)

// Handler is a subscribable callback. Two handlers are the same
// subscription only when they are the same pointer.
type Handler struct {
	fn func(data any)
}

// NewHandler wraps fn in a handle that can be subscribed and unsubscribed.
func NewHandler(fn func(data any)) *Handler {
	return &Handler{fn: fn}
}

// Bus maps event names to ordered handler lists.
type Bus struct {
	mutex    sync.Mutex
	handlers map[string][]*Handler

	bridgeOnce sync.Once
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]*Handler)}
}

// Subscribe appends h to the handlers of event. Subscribing the same
// handler twice makes it run twice per publish.
func (b *Bus) Subscribe(event string, h *Handler) {
	if h == nil {
		return
	}
	b.mutex.Lock()
	b.handlers[event] = append(b.handlers[event], h)
	b.mutex.Unlock()
}

// Unsubscribe removes the first occurrence of h from event's handlers.
// Unknown events and handlers are ignored.
func (b *Bus) Unsubscribe(event string, h *Handler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	list, ok := b.handlers[event]
	if !ok {
		return
	}
	for i, candidate := range list {
		if candidate != h {
			continue
		}
		next := make([]*Handler, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(b.handlers, event)
		} else {
			b.handlers[event] = next
		}
		return
	}
}

// Publish calls every handler of event with data. A handler that panics
// aborts the publish and the panic reaches the caller.
func (b *Bus) Publish(event string, data any) {
	b.mutex.Lock()
	snapshot := b.handlers[event]
	b.mutex.Unlock()

	for _, h := range snapshot {
		if h.fn != nil {
			h.fn(data)
		}
	}
}

// Subscribers returns how many subscriptions event currently has.
func (b *Bus) Subscribers(event string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.handlers[event])
}

// BridgeLoad re-publishes every value received on signal as EventPageReady
// with a nil payload, until signal is closed. Only the first call has any
// effect.
func (b *Bus) BridgeLoad(signal <-chan struct{}) {
	if signal == nil {
		return
	}
	b.bridgeOnce.Do(func() {
		go func() {
			for range signal {
				b.Publish(EventPageReady, nil)
			}
		}()
	})
}
