package notify

import (
	"context"
	"sync"
)

// queue is a growable ring buffer of notifications.
// It doubles its capacity when 70% full and never rejects a push until closed.
type queue struct {
	mu     sync.Mutex
	buf    []Notification
	head   int
	tail   int
	count  int
	closed bool

	// ready has a pending token while count > 0 or the queue is closed.
	ready chan struct{}

	pushed  int64
	resizes int
}

func newQueue(initialCapacity int) *queue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &queue{
		buf:   make([]Notification, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

func (q *queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// push appends n. Returns false once the queue is closed.
func (q *queue) push(n Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := max(len(q.buf)*70/100, 1)
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = n
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.pushed++

	q.signal()
	return true
}

// tryPop removes the oldest notification without blocking.
func (q *queue) tryPop() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return Notification{}, false
	}

	n := q.buf[q.head]
	q.buf[q.head] = Notification{}
	q.head = (q.head + 1) % len(q.buf)
	q.count--

	if q.count > 0 {
		q.signal()
	}
	return n, true
}

// pop blocks until a notification is available, the queue is closed and
// drained, or ctx is done.
func (q *queue) pop(ctx context.Context) (Notification, bool) {
	for {
		if n, ok := q.tryPop(); ok {
			return n, true
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return Notification{}, false
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return Notification{}, false
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signal()
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles the ring. Must be called with the lock held.
func (q *queue) grow() {
	next := make([]Notification, len(q.buf)*2)
	if q.count > 0 {
		if q.head < q.tail {
			copy(next, q.buf[q.head:q.tail])
		} else {
			n := copy(next, q.buf[q.head:])
			copy(next[n:], q.buf[:q.tail])
		}
	}
	q.buf = next
	q.head = 0
	q.tail = q.count
	q.resizes++
}
