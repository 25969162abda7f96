package bus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishSyncWaitsForHandlers(t *testing.T) {
	b := NewEventBus()

	var mu sync.Mutex
	var got []EventType
	b.Subscribe(EventTypeResponse, func(e Event) {
		mu.Lock()
		got = append(got, e.Type)
		mu.Unlock()
	})

	b.PublishSync(Event{Type: EventTypeResponse, Data: map[string]any{"text": "hi"}})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventTypeResponse}, got)
}

func TestPublishAsync(t *testing.T) {
	b := NewEventBus()

	done := make(chan Event, 1)
	b.Subscribe(EventTypeServiceConnected, func(e Event) { done <- e })

	b.Publish(Event{Type: EventTypeServiceConnected})

	select {
	case e := <-done:
		assert.Equal(t, EventTypeServiceConnected, e.Type)
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestSubscribeMultiple(t *testing.T) {
	b := NewEventBus()

	var mu sync.Mutex
	count := 0
	b.SubscribeMultiple([]EventType{EventTypeListeningStarted, EventTypeListeningStopped}, func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.PublishSync(Event{Type: EventTypeListeningStarted})
	b.PublishSync(Event{Type: EventTypeListeningStopped})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestUnrelatedEventNotDelivered(t *testing.T) {
	b := NewEventBus()

	called := false
	b.Subscribe(EventTypeResponse, func(Event) { called = true })

	b.PublishSync(Event{Type: EventTypeConfigReloaded})
	assert.False(t, called)
}

func TestClear(t *testing.T) {
	b := NewEventBus()

	called := false
	b.Subscribe(EventTypeResponse, func(Event) { called = true })
	b.Clear()

	b.PublishSync(Event{Type: EventTypeResponse})
	assert.False(t, called)
}
