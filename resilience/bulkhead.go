package resilience

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// BulkheadConfig configures Bulkhead.
type BulkheadConfig struct {
	// MaxConcurrency is the maximum number of in-flight calls, >= 1.
	MaxConcurrency int

	// MaxQueueDepth is the maximum number of callers allowed to wait for a
	// slot once MaxConcurrency is saturated. 0 means fail immediately on
	// saturation rather than queue.
	MaxQueueDepth int

	// QueueTimeout is the maximum time a queued waiter may wait for a slot.
	QueueTimeout time.Duration

	// Hub receives a BulkheadRejectedEvent per rejection. Defaults to
	// observe.DefaultHub.
	Hub *observe.Hub
}

// waiter is one entry in the FIFO queue. admit is closed by the releaser
// that hands this waiter a slot; cancel is closed by the waiter itself
// (deadline or caller cancellation) so it can be removed from the queue
// without leaking.
type waiter struct {
	admit  chan struct{}
	cancel chan struct{}
}

// Bulkhead bounds concurrent in-flight calls and, beyond that bound, a
// strict FIFO queue of waiters each carrying its own deadline. A plain
// channel-semaphore only covers the concurrency bound; the queue on top
// of it gives a caller backpressure instead of an immediate rejection.
type Bulkhead struct {
	pipeline.DelegatingHandler
	config BulkheadConfig

	mu      sync.Mutex
	inFlight int
	queue   *list.List // of *waiter
}

// NewBulkhead builds a Bulkhead handler.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &Bulkhead{config: config, queue: list.New()}
}

// Handle acquires a slot (queueing if necessary), calls the inner handler,
// then releases the slot exactly once regardless of outcome.
func (b *Bulkhead) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	if err := b.acquire(ctx); err != nil {
		return httpmsg.Response{}, err
	}
	defer b.release()

	return b.Next().Handle(ctx)
}

func (b *Bulkhead) acquire(ctx *httpmsg.Context) error {
	b.mu.Lock()
	if b.inFlight < b.config.MaxConcurrency {
		b.inFlight++
		b.mu.Unlock()
		return nil
	}

	if b.queue.Len() >= b.config.MaxQueueDepth {
		b.mu.Unlock()
		b.reject(ReasonQueueFull)
		return &BulkheadRejectedError{
			Reason:         ReasonQueueFull,
			MaxConcurrency: b.config.MaxConcurrency,
			MaxQueueDepth:  b.config.MaxQueueDepth,
		}
	}

	w := &waiter{admit: make(chan struct{}), cancel: make(chan struct{})}
	elem := b.queue.PushBack(w)
	b.mu.Unlock()

	timer := time.NewTimer(b.config.QueueTimeout)
	defer timer.Stop()

	select {
	case <-w.admit:
		return nil
	case <-timer.C:
		b.removeWaiter(elem, w)
		b.reject(ReasonQueueTimeout)
		return &BulkheadRejectedError{
			Reason:         ReasonQueueTimeout,
			MaxConcurrency: b.config.MaxConcurrency,
			MaxQueueDepth:  b.config.MaxQueueDepth,
		}
	case <-ctx.Token().Done():
		b.removeWaiter(elem, w)
		return ctx.ThrowIfCancelled()
	}
}

// removeWaiter drops w from the queue if it is still queued (it may already
// have been popped and admitted by release concurrently with the timeout
// firing; in that case this is a no-op and the caller's slot silently goes
// to the next waiter instead of leaking).
func (b *Bulkhead) removeWaiter(elem *list.Element, w *waiter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-w.admit:
		// Already admitted between the timer firing and acquiring the
		// lock; the slot is ours now, release it immediately since the
		// caller is treating this as a rejection.
		b.inFlight--
		b.promoteNextLocked()
		return
	default:
	}
	b.queue.Remove(elem)
}

func (b *Bulkhead) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--
	b.promoteNextLocked()
}

// promoteNextLocked hands the freed slot to the next live waiter in FIFO
// order, skipping any that already cancelled themselves out of the queue.
// Caller holds b.mu.
func (b *Bulkhead) promoteNextLocked() {
	for {
		front := b.queue.Front()
		if front == nil {
			return
		}
		b.queue.Remove(front)
		w := front.Value.(*waiter)
		b.inFlight++
		close(w.admit)
		return
	}
}

func (b *Bulkhead) reject(reason string) {
	b.config.Hub.Publish(observe.BulkheadRejectedEvent{
		Reason:         reason,
		MaxConcurrency: b.config.MaxConcurrency,
		MaxQueueDepth:  b.config.MaxQueueDepth,
	})
}

// BulkheadMetrics is a point-in-time snapshot of bulkhead occupancy.
type BulkheadMetrics struct {
	InFlight      int
	QueueLength   int
	MaxConcurrency int
	MaxQueueDepth int
}

func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		InFlight:       b.inFlight,
		QueueLength:    b.queue.Len(),
		MaxConcurrency: b.config.MaxConcurrency,
		MaxQueueDepth:  b.config.MaxQueueDepth,
	}
}
