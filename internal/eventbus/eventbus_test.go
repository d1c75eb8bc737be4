package eventbus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe()

	bus.Publish("hello")
	select {
	case ev := <-sub:
		if ev != "hello" {
			t.Fatalf("got %v, want hello", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			bus.Publish(i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
		default:
			if received == 0 || received > subscriberBuffer {
				t.Fatalf("received %d events, want 1..%d", received, subscriberBuffer)
			}
			return
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	defer bus.Close()
	sub := bus.Subscribe()
	bus.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	// Publishing after unsubscribe must not panic.
	bus.Publish("late")
}

func TestCloseStopsDelivery(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()

	if _, ok := <-sub; ok {
		t.Fatal("channel still open after close")
	}
	bus.Publish("ignored")
	if ch := bus.Subscribe(); ch == nil {
		t.Fatal("subscribe after close returned nil channel")
	} else if _, ok := <-ch; ok {
		t.Fatal("post-close subscription delivered an event")
	}
}
