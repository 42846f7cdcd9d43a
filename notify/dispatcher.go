// Package notify delivers outbound email off the request path. Requests enqueue
// a Message and return immediately; a fixed pool of workers renders nothing and
// only hands finished messages to a Sender. Delivery is fire-and-forget: a full
// queue drops the message and a failed send is logged, never retried.
package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// Message is a rendered email ready for delivery.
type Message struct {
	Kind     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Stats are running delivery counters.
type Stats struct {
	Queued  int64 `json:"queued"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// Dispatcher owns the bounded queue and the worker pool.
type Dispatcher struct {
	sender  Sender
	workers int
	queue   chan Message

	mu     sync.RWMutex
	closed bool

	queued  *atomic.Int64
	sent    *atomic.Int64
	failed  *atomic.Int64
	dropped *atomic.Int64
}

// NewDispatcher creates a dispatcher with the given pool and queue sizes.
func NewDispatcher(sender Sender, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		workers: workers,
		queue:   make(chan Message, queueSize),
		queued:  atomic.NewInt64(0),
		sent:    atomic.NewInt64(0),
		failed:  atomic.NewInt64(0),
		dropped: atomic.NewInt64(0),
	}
}

// Enqueue schedules msg without blocking. It reports false when the message was
// dropped because the queue is full or the dispatcher has shut down.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.dropped.Inc()
		log.Printf("notify: dispatcher stopped, dropping %s email to %s", msg.Kind, msg.To)
		return false
	}
	select {
	case d.queue <- msg:
		d.queued.Inc()
		return true
	default:
		d.dropped.Inc()
		log.Printf("notify: queue full, dropping %s email to %s", msg.Kind, msg.To)
		return false
	}
}

// Run starts the workers and blocks until ctx is cancelled. On cancellation no
// new messages are accepted and everything already queued is delivered before
// Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	log.Printf("notify: dispatcher starting with %d workers", d.workers)

	var wg sync.WaitGroup
	for i := 1; i <= d.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			d.work(workerID)
		}(i)
	}

	<-ctx.Done()

	d.mu.Lock()
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	wg.Wait()
	log.Printf("notify: dispatcher stopped (sent=%d failed=%d dropped=%d)", d.sent.Load(), d.failed.Load(), d.dropped.Load())
	return nil
}

func (d *Dispatcher) work(workerID int) {
	for msg := range d.queue {
		// The run context may already be cancelled while draining, so each
		// delivery gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.sender.Send(ctx, msg)
		cancel()
		if err != nil {
			d.failed.Inc()
			log.Printf("notify: worker %d failed to send %s email to %s: %v", workerID, msg.Kind, msg.To, err)
			continue
		}
		d.sent.Inc()
	}
}

// Stats returns a snapshot of the counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:  d.queued.Load(),
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
