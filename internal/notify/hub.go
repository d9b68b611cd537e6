package notify

import (
	"sync"

	"go.uber.org/zap"

	"github.com/girijasivakumar242/IARS/internal/metrics"
	"github.com/girijasivakumar242/IARS/pkg/logger"
)

// EventStudentsChanged is the only event the hub carries. It is a
// cache-invalidation signal with no payload; subscribers re-fetch current
// state when they see it.
const EventStudentsChanged = "studentUpdated"

// Subscriber receives change signals on C. The channel has capacity one and
// sends are non-blocking, so a subscriber that has not drained a pending
// signal simply coalesces further ones into it.
type Subscriber struct {
	C chan struct{}
}

// Hub fans a content-free "something changed" signal out to every current
// subscriber. Delivery is at-most-once and best-effort: no replay for late
// subscribers, no ordering guarantee, and Broadcast never blocks the caller.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
	}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan struct{}, 1)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logger.Debug("Subscriber added", zap.Int("subscribers", count))
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()

	metrics.WebSocketClients.Set(float64(count))
	logger.Debug("Subscriber removed", zap.Int("subscribers", count))
}

// Broadcast signals every current subscriber without blocking. A full
// subscriber channel means a signal is already pending there; the new one
// coalesces into it.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.C <- struct{}{}:
		default:
		}
	}

	metrics.NotificationsSent.Inc()
	logger.Debug("Change notification broadcast", zap.Int("subscribers", len(h.subscribers)))
}
