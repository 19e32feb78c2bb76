package notifier

import (
	"log"
	"time"

	"library-backend/pkg/circuitbreaker"
)

// Sender delivers a single notification.
type Sender interface {
	Send(n *Notification) error
}

// Dispatcher accepts notifications without blocking the request path and
// delivers them from a single background worker. Delivery is best effort:
// a full queue drops the notification, a failed send is logged and
// discarded, nothing is retried.
type Dispatcher struct {
	sender  Sender
	pending *queue
	breaker *circuitbreaker.CircuitBreaker
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func NewDispatcher(sender Sender, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 100
	}
	return &Dispatcher{
		sender:  sender,
		pending: newQueue(capacity),
		breaker: circuitbreaker.New(5, 30*time.Second),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (d *Dispatcher) Start() {
	go d.run()
}

// Stop waits for the worker to exit. Queued notifications that have not
// been sent yet are dropped.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

// Dispatch enqueues a notification and returns immediately.
func (d *Dispatcher) Dispatch(n *Notification) {
	if n == nil || n.To == "" {
		return
	}
	if !d.pending.Enqueue(n) {
		log.Printf("Notification queue full, dropping %q to %s", n.Subject, n.To)
		return
	}
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.stop:
			return
		case <-d.wake:
			d.drain()
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		n := d.pending.Dequeue()
		if n == nil {
			return
		}
		err := d.breaker.Execute(func() error {
			return d.sender.Send(n)
		})
		if err != nil {
			log.Printf("Failed to send %q to %s: %v", n.Subject, n.To, err)
		}
	}
}
