package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	TypeError   Type = "error"
	TypeInfo    Type = "info"
	TypeSuccess Type = "success"
)

// DefaultHistorySize is the number of notifications kept for Recent.
const DefaultHistorySize = 100

// subscriberQueueSize is the initial capacity of a subscriber's queue.
const subscriberQueueSize = 16

// Notification is a message shown to the dashboard user.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	Type        Type      `json:"type"`
	Message     string    `json:"message"`
	Description string    `json:"description,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher is implemented by anything that can surface a notification.
type Publisher interface {
	Publish(typ Type, message, description string) Notification
}

// Hub delivers notifications to every subscriber and keeps a short history.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]*Subscription
	history []Notification
	size    int
	closed  bool

	logger *slog.Logger
	now    func() time.Time
}

// NewHub creates a Hub retaining up to historySize notifications.
func NewHub(historySize int, logger *slog.Logger) *Hub {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]*Subscription),
		size:   historySize,
		logger: logger,
		now:    time.Now,
	}
}

// Publish records a notification and queues it for every subscriber.
func (h *Hub) Publish(typ Type, message, description string) Notification {
	n := Notification{
		ID:          uuid.New(),
		Type:        typ,
		Message:     message,
		Description: description,
		Time:        h.now().UTC(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return n
	}

	h.history = append(h.history, n)
	if len(h.history) > h.size {
		h.history = append(h.history[:0:0], h.history[len(h.history)-h.size:]...)
	}

	for _, sub := range h.subs {
		sub.queue.push(n)
	}

	h.logger.Debug("notification published",
		"type", typ,
		"message", message,
		"subscribers", len(h.subs),
	)
	return n
}

// Subscribe registers a new subscriber. Call Unsubscribe when done.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:    uuid.New(),
		queue: newQueue(subscriberQueueSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		sub.queue.close()
		return sub
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes sub and closes its queue.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
	sub.queue.close()
}

// Recent returns up to n of the latest notifications, oldest first.
// n <= 0 returns the whole history.
func (h *Hub) Recent(n int) []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if n > 0 && n < len(h.history) {
		start = len(h.history) - n
	}
	out := make([]Notification, len(h.history)-start)
	copy(out, h.history[start:])
	return out
}

// Subscribers returns the number of active subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close closes every subscription. Later publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, sub := range h.subs {
		sub.queue.close()
		delete(h.subs, id)
	}
}

// Subscription is one subscriber's view of the hub.
type Subscription struct {
	ID    uuid.UUID
	queue *queue
}

// Next blocks until a notification arrives. It returns false when the
// subscription is closed and drained or ctx is done.
func (s *Subscription) Next(ctx context.Context) (Notification, bool) {
	return s.queue.pop(ctx)
}

// Pending returns the number of queued notifications.
func (s *Subscription) Pending() int {
	return s.queue.len()
}
