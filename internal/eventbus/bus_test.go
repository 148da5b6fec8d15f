package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(log *[]string, name string) *Handler {
	return NewHandler(func(data any) {
		*log = append(*log, name)
	})
}

func TestPublishOrder(t *testing.T) {
	bus := New()
	var calls []string

	bus.Subscribe("x", recorder(&calls, "a"))
	bus.Subscribe("x", recorder(&calls, "b"))
	bus.Subscribe("y", recorder(&calls, "other"))

	bus.Publish("x", nil)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestPublishPayload(t *testing.T) {
	bus := New()
	var got []any
	bus.Subscribe("x", NewHandler(func(data any) { got = append(got, data) }))

	bus.Publish("x", 42)
	bus.Publish("x", map[string]int{"n": 1})

	require.Len(t, got, 2)
	assert.Equal(t, 42, got[0])
	assert.Equal(t, map[string]int{"n": 1}, got[1])
}

func TestPublishWithoutSubscribers(t *testing.T) {
	bus := New()
	assert.NotPanics(t, func() { bus.Publish("nobody", "data") })
}

func TestDuplicateSubscription(t *testing.T) {
	bus := New()
	count := 0
	h := NewHandler(func(any) { count++ })

	bus.Subscribe("x", h)
	bus.Subscribe("x", h)
	bus.Publish("x", nil)
	assert.Equal(t, 2, count)

	bus.Unsubscribe("x", h)
	assert.Equal(t, 1, bus.Subscribers("x"))
	bus.Publish("x", nil)
	assert.Equal(t, 3, count)
}

func TestUnsubscribeFirstOccurrenceOnly(t *testing.T) {
	bus := New()
	var calls []string
	a := recorder(&calls, "a")
	b := recorder(&calls, "b")

	bus.Subscribe("x", a)
	bus.Subscribe("x", b)
	bus.Subscribe("x", a)
	bus.Unsubscribe("x", a)

	bus.Publish("x", nil)
	assert.Equal(t, []string{"b", "a"}, calls)
}

func TestUnsubscribeUnknown(t *testing.T) {
	bus := New()
	h := NewHandler(func(any) {})

	assert.NotPanics(t, func() {
		bus.Unsubscribe("never", h)
		bus.Subscribe("x", h)
		bus.Unsubscribe("x", NewHandler(func(any) {}))
	})
	assert.Equal(t, 1, bus.Subscribers("x"))

	bus.Unsubscribe("x", h)
	assert.Equal(t, 0, bus.Subscribers("x"))
}

func TestHandlerIdentityIsPointer(t *testing.T) {
	bus := New()
	count := 0
	fn := func(any) { count++ }
	first := NewHandler(fn)
	second := NewHandler(fn)

	bus.Subscribe("x", first)
	bus.Unsubscribe("x", second)
	bus.Publish("x", nil)
	assert.Equal(t, 1, count, "same func in a different handle is a different subscription")
}

func TestPanicPropagates(t *testing.T) {
	bus := New()
	var calls []string
	bus.Subscribe("x", recorder(&calls, "before"))
	bus.Subscribe("x", NewHandler(func(any) { panic("boom") }))
	bus.Subscribe("x", recorder(&calls, "after"))

	assert.PanicsWithValue(t, "boom", func() { bus.Publish("x", nil) })
	assert.Equal(t, []string{"before"}, calls)
}

func TestHandlerMaySubscribeDuringPublish(t *testing.T) {
	bus := New()
	var calls []string
	late := recorder(&calls, "late")
	bus.Subscribe("x", NewHandler(func(any) {
		calls = append(calls, "first")
		bus.Subscribe("x", late)
	}))

	bus.Publish("x", nil)
	assert.Equal(t, []string{"first"}, calls, "publish runs against a snapshot")

	calls = nil
	bus.Publish("x", nil)
	assert.Equal(t, []string{"first", "late"}, calls)
}

func TestHandlerMayUnsubscribeItself(t *testing.T) {
	bus := New()
	count := 0
	var self *Handler
	self = NewHandler(func(any) {
		count++
		bus.Unsubscribe("x", self)
	})
	bus.Subscribe("x", self)

	bus.Publish("x", nil)
	bus.Publish("x", nil)
	assert.Equal(t, 1, count)
}

func TestConcurrentSubscriptions(t *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	handlers := make([]*Handler, 50)
	for i := range handlers {
		handlers[i] = NewHandler(func(any) {})
	}

	for _, h := range handlers {
		wg.Add(1)
		go func(h *Handler) {
			defer wg.Done()
			bus.Subscribe("x", h)
			bus.Publish("x", nil)
		}(h)
	}
	wg.Wait()
	assert.Equal(t, 50, bus.Subscribers("x"))

	for _, h := range handlers {
		wg.Add(1)
		go func(h *Handler) {
			defer wg.Done()
			bus.Unsubscribe("x", h)
		}(h)
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Subscribers("x"))
}

func TestBridgeLoad(t *testing.T) {
	bus := New()
	ready := make(chan any, 4)
	bus.Subscribe(EventPageReady, NewHandler(func(data any) { ready <- data }))

	signal := make(chan struct{})
	bus.BridgeLoad(signal)

	signal <- struct{}{}
	select {
	case data := <-ready:
		assert.Nil(t, data)
	case <-time.After(time.Second):
		t.Fatal("pageReady was not published")
	}
	close(signal)
}

func TestBridgeLoadOnce(t *testing.T) {
	bus := New()
	ready := make(chan struct{}, 4)
	bus.Subscribe(EventPageReady, NewHandler(func(any) { ready <- struct{}{} }))

	first := make(chan struct{}, 1)
	second := make(chan struct{}, 1)
	bus.BridgeLoad(first)
	bus.BridgeLoad(second)

	second <- struct{}{}
	first <- struct{}{}

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("pageReady was not published")
	}
	select {
	case <-ready:
		t.Fatal("second bridge should be ignored")
	case <-time.After(50 * time.Millisecond):
	}
	close(first)
}

func TestBridgeLoadNilSignal(t *testing.T) {
	bus := New()
	bus.BridgeLoad(nil)

	ready := make(chan struct{}, 1)
	bus.Subscribe(EventPageReady, NewHandler(func(any) { ready <- struct{}{} }))
	signal := make(chan struct{}, 1)
	bus.BridgeLoad(signal)
	signal <- struct{}{}

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("a nil signal must not use up the bridge")
	}
	close(signal)
}
