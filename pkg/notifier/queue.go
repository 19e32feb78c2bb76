package notifier

import (
	"sync"
)

// Notification is one outbound email. Body is HTML, Text the plain
// fallback.
type Notification struct {
	To      string
	Subject string
	Body    string
	Text    string
}

// queue is a bounded FIFO of pending notifications. Enqueue reports false
// when the queue is full; the caller drops the notification.
type queue struct {
	items    []*Notification
	capacity int
	mu       sync.Mutex
}

func newQueue(capacity int) *queue {
	return &queue{
		items:    make([]*Notification, 0, capacity),
		capacity: capacity,
	}
}

func (q *queue) Enqueue(n *Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.capacity {
		return false
	}
	q.items = append(q.items, n)
	return true
}

func (q *queue) Dequeue() *Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n
}

func (q *queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
