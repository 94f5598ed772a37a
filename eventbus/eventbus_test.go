package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToAllListeners(t *testing.T) {
	bus := New(nil)

	a := bus.Subscribe("PERSON_ADDED")
	b := bus.Subscribe("PERSON_ADDED")
	defer a.Cancel()
	defer b.Cancel()

	delivered := bus.Publish("PERSON_ADDED", "payload-1")
	assert.Equal(t, 2, delivered)

	assert.Equal(t, "payload-1", <-a.Events())
	assert.Equal(t, "payload-1", <-b.Events())
}

func TestPublishToEmptyTopic(t *testing.T) {
	bus := New(nil)
	assert.Equal(t, 0, bus.Publish("PERSON_ADDED", "nobody-home"))
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	bus := New(nil)

	bus.Publish("PERSON_ADDED", "early")

	sub := bus.Subscribe("PERSON_ADDED")
	defer sub.Cancel()

	select {
	case got := <-sub.Events():
		t.Fatalf("late subscriber received replayed event %v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCancelDeregisters(t *testing.T) {
	bus := New(nil)

	sub := bus.Subscribe("PERSON_ADDED")
	require.Equal(t, 1, bus.Listeners("PERSON_ADDED"))

	sub.Cancel()
	assert.Equal(t, 0, bus.Listeners("PERSON_ADDED"))
	assert.Equal(t, 0, bus.Publish("PERSON_ADDED", "after-cancel"))

	// Channel is closed after cancel.
	_, open := <-sub.Events()
	assert.False(t, open)
}

func TestCancelIsIdempotent(t *testing.T) {
	bus := New(nil)
	sub := bus.Subscribe("PERSON_ADDED")
	sub.Cancel()
	assert.NotPanics(t, sub.Cancel)
}

func TestSlowListenerDoesNotBlockPublisher(t *testing.T) {
	bus := New(nil)

	slow := bus.Subscribe("PERSON_ADDED")
	defer slow.Cancel()

	// Fill the listener's buffer without draining it, then keep publishing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < DefaultBuffer*3; i++ {
			bus.Publish("PERSON_ADDED", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on slow listener")
	}

	// Only the first DefaultBuffer events were queued; the rest were dropped.
	count := 0
	for i := 0; i < DefaultBuffer; i++ {
		<-slow.Events()
		count++
	}
	assert.Equal(t, DefaultBuffer, count)
	select {
	case <-slow.Events():
		t.Fatal("expected remaining events to be dropped")
	default:
	}
}

func TestConcurrentPublishAndCancel(t *testing.T) {
	bus := New(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		sub := bus.Subscribe("PERSON_ADDED")
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range sub.Events() {
			}
		}()
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			sub.Cancel()
		}()
	}

	for i := 0; i < 200; i++ {
		bus.Publish("PERSON_ADDED", i)
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Listeners("PERSON_ADDED"))
}

func TestTopicsAreIndependent(t *testing.T) {
	bus := New(nil)

	persons := bus.Subscribe("PERSON_ADDED")
	other := bus.Subscribe("BOOK_ADDED")
	defer persons.Cancel()
	defer other.Cancel()

	bus.Publish("PERSON_ADDED", "p")

	assert.Equal(t, "p", <-persons.Events())
	select {
	case <-other.Events():
		t.Fatal("event leaked across topics")
	default:
	}
}
