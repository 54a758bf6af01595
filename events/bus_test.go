package events

import (
	"sync"
	"testing"
)

type testEvent struct{ n int }

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus[testEvent]()

	var got []string
	bus.Subscribe(func(e testEvent) { got = append(got, "first") })
	bus.Subscribe(func(e testEvent) { got = append(got, "second") })

	bus.Publish(testEvent{n: 1})

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("unexpected delivery order: %v", got)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus[testEvent]()

	count := 0
	unsubscribe := bus.Subscribe(func(e testEvent) { count++ })

	bus.Publish(testEvent{})
	unsubscribe()
	unsubscribe() // idempotent
	bus.Publish(testEvent{})

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if bus.Len() != 0 {
		t.Errorf("expected no subscribers, got %d", bus.Len())
	}
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus[testEvent]
	bus.Publish(testEvent{n: 1})
	if bus.Len() != 0 {
		t.Error("nil bus should report zero subscribers")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus[testEvent]()

	var mu sync.Mutex
	total := 0
	bus.Subscribe(func(e testEvent) {
		mu.Lock()
		total += e.n
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(testEvent{n: 2})
		}()
	}
	wg.Wait()

	if total != 100 {
		t.Errorf("expected total 100, got %d", total)
	}
}
