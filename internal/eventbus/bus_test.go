package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(4)
	defer unsub()

	b.Publish(Event{Type: TypeRunStarted, Data: 42})

	select {
	case e := <-ch:
		if e.Type != TypeRunStarted || e.Data != 42 {
			t.Fatalf("event = %+v", e)
		}
		if e.Time.IsZero() {
			t.Fatalf("publish must stamp the event time")
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestSlowSubscriberDropsNotBlocks(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: TypeRunFinished})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("publish blocked on a full subscriber")
	}
	if len(ch) != 1 {
		t.Fatalf("buffer should hold exactly one event, has %d", len(ch))
	}
}

func TestUnsubscribeIsIdempotentAndSafe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe(1)

	unsub()
	unsub() // second call is a no-op

	// Publishing into a closed subscriber must not panic.
	b.Publish(Event{Type: TypeRunAborted})

	if _, ok := <-ch; ok {
		t.Fatalf("channel must be closed after unsubscribe")
	}
}
