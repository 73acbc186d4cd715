package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

func TestBulkhead_AllowsUpToMaxConcurrency(t *testing.T) {
	release := make(chan struct{})
	var inFlightPeak int
	var mu sync.Mutex
	current := 0

	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		mu.Lock()
		current++
		if current > inFlightPeak {
			inFlightPeak = current
		}
		mu.Unlock()
		<-release
		mu.Lock()
		current--
		mu.Unlock()
		return okResponse(), nil
	})

	bh := NewBulkhead(BulkheadConfig{MaxConcurrency: 2, MaxQueueDepth: 0})
	h := chain(t, bh, inner)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.Handle(newCtx())
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if inFlightPeak > 2 {
		t.Errorf("peak in-flight = %d, want <= 2", inFlightPeak)
	}
}

func TestBulkhead_RejectsWhenQueueFull(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		<-hang
		return okResponse(), nil
	})

	bh := NewBulkhead(BulkheadConfig{MaxConcurrency: 1, MaxQueueDepth: 1, QueueTimeout: time.Second})
	h := chain(t, bh, inner)

	go func() { _, _ = h.Handle(newCtx()) }()
	time.Sleep(10 * time.Millisecond) // occupy the only slot

	go func() { _, _ = h.Handle(newCtx()) }()
	time.Sleep(10 * time.Millisecond) // fill the only queue slot

	_, err := h.Handle(newCtx())
	var rejected *BulkheadRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want *BulkheadRejectedError", err)
	}
	if rejected.Reason != ReasonQueueFull {
		t.Errorf("Reason = %q, want %q", rejected.Reason, ReasonQueueFull)
	}
}

func TestBulkhead_RejectsOnQueueTimeout(t *testing.T) {
	hang := make(chan struct{})
	defer close(hang)
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		<-hang
		return okResponse(), nil
	})

	bh := NewBulkhead(BulkheadConfig{MaxConcurrency: 1, MaxQueueDepth: 1, QueueTimeout: 10 * time.Millisecond})
	h := chain(t, bh, inner)

	go func() { _, _ = h.Handle(newCtx()) }()
	time.Sleep(10 * time.Millisecond)

	_, err := h.Handle(newCtx())
	var rejected *BulkheadRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want *BulkheadRejectedError", err)
	}
	if rejected.Reason != ReasonQueueTimeout {
		t.Errorf("Reason = %q, want %q", rejected.Reason, ReasonQueueTimeout)
	}
}

func TestBulkhead_PromotesQueuedWaiterOnRelease(t *testing.T) {
	gate := make(chan struct{})
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		<-gate
		return okResponse(), nil
	})

	bh := NewBulkhead(BulkheadConfig{MaxConcurrency: 1, MaxQueueDepth: 1, QueueTimeout: time.Second})
	h := chain(t, bh, inner)

	firstDone := make(chan struct{})
	go func() {
		_, _ = h.Handle(newCtx())
		close(firstDone)
	}()
	time.Sleep(10 * time.Millisecond)

	secondDone := make(chan struct{})
	go func() {
		_, _ = h.Handle(newCtx())
		close(secondDone)
	}()
	time.Sleep(10 * time.Millisecond)

	m := bh.Metrics()
	if m.InFlight != 1 || m.QueueLength != 1 {
		t.Fatalf("Metrics() = %+v, want InFlight=1 QueueLength=1", m)
	}

	close(gate)
	<-firstDone
	<-secondDone
}

func TestBulkhead_EmitsRejectedEvent(t *testing.T) {
	hub := observe.NewHub(nil)
	var events []observe.BulkheadRejectedEvent
	observe.Subscribe(hub, func(e observe.BulkheadRejectedEvent) { events = append(events, e) })

	bh := NewBulkhead(BulkheadConfig{MaxConcurrency: 1, MaxQueueDepth: 0, Hub: hub})

	hang := make(chan struct{})
	defer close(hang)
	blocking := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		<-hang
		return okResponse(), nil
	})
	h := chain(t, bh, blocking)

	go func() { _, _ = h.Handle(newCtx()) }()
	time.Sleep(10 * time.Millisecond)

	_, _ = h.Handle(newCtx())

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
}
