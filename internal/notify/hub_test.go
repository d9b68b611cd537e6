package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func drained(sub *Subscriber) bool {
	select {
	case <-sub.C:
		return true
	default:
		return false
	}
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Broadcast()

	assert.True(t, drained(a))
	assert.True(t, drained(b))
}

func TestBroadcastCoalescesWhenNotDrained(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()

	// Three changes before the subscriber reads: at most one pending signal.
	hub.Broadcast()
	hub.Broadcast()
	hub.Broadcast()

	assert.True(t, drained(sub))
	assert.False(t, drained(sub), "signals must coalesce into one pending notification")
}

func TestBroadcastNeverBlocks(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 100; i++ {
		hub.Subscribe()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			hub.Broadcast()
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Broadcast blocked on undrained subscribers")
	}
}

func TestUnsubscribedSeesNothing(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	hub.Unsubscribe(sub)

	hub.Broadcast()

	assert.False(t, drained(sub))
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub()
	hub.Broadcast()

	late := hub.Subscribe()
	assert.False(t, drained(late), "subscribers must not see events from before they joined")
}
