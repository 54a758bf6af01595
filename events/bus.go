// Package events provides a typed, synchronous publish/subscribe bus.
//
// Each producer in failsafe defines its own closed set of event types and
// publishes them on a Bus parameterised by that set, so consumers can switch
// exhaustively over concrete types instead of probing untyped payload maps.
//
//	bus := events.NewBus[resilience.Event]()
//	unsubscribe := bus.Subscribe(func(e resilience.Event) {
//	    switch ev := e.(type) {
//	    case resilience.RetryExhausted:
//	        log.Warn("gave up", logger.Fields("op", ev.OperationID))
//	    }
//	})
//	defer unsubscribe()
package events

import (
	"sync"
)

// Handler receives published events.
type Handler[E any] func(E)

// Bus delivers every published event to all current subscribers, in
// subscription order, on the publishing goroutine.
type Bus[E any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]Handler[E]
	order    []uint64
}

// NewBus creates an empty bus.
func NewBus[E any]() *Bus[E] {
	return &Bus[E]{handlers: make(map[uint64]Handler[E])}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus[E]) Subscribe(h Handler[E]) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus[E]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.handlers, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Publish delivers e to every subscriber. A nil bus is a no-op so producers
// can treat the bus as optional.
func (b *Bus[E]) Publish(e E) {
	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := make([]Handler[E], 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus[E]) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}
