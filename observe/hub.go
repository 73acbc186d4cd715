package observe

import (
	"context"
	"sync"
)

// Hub is a process-wide publish/subscribe surface for Event. Emission is
// synchronous: Publish returns only once every subscriber has run. A
// subscriber that panics is recovered and logged rather than allowed to
// crash the emitting policy — matching Logger's "must be best-effort and
// must not panic" contract one level up.
type Hub struct {
	mu       sync.RWMutex
	subs     []subscription
	logger   Logger
}

type subscription struct {
	match func(Event) bool
	fn    func(Event)
}

// NewHub returns an empty Hub. A nil logger is replaced with a no-op one;
// subscriber panics are swallowed either way, just not reported anywhere.
func NewHub(logger Logger) *Hub {
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Hub{logger: logger}
}

// DefaultHub is the package-level singleton most policies publish to
// unless a caller wires a dedicated Hub through ClientBuilder, matching
// the package-level singleton idiom used elsewhere in this module.
var DefaultHub = NewHub(nil)

// Subscribe registers fn to run for every published event whose dynamic
// type is exactly T. Generic over the sealed Event hierarchy so callers get
// compile-time narrowing without a type switch.
func Subscribe[T Event](h *Hub, fn func(T)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, subscription{
		match: func(e Event) bool { _, ok := e.(T); return ok },
		fn:    func(e Event) { fn(e.(T)) },
	})
}

// SubscribeAll registers fn to run for every published event regardless of
// its concrete type.
func (h *Hub) SubscribeAll(fn func(Event)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, subscription{
		match: func(Event) bool { return true },
		fn:    fn,
	})
}

// Publish delivers e to every matching subscriber, in registration order.
// Across concurrent Publish calls delivery order is unspecified, matching
// the core's "ordering across top-level calls is unspecified" guarantee.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	subs := make([]subscription, len(h.subs))
	copy(subs, h.subs)
	h.mu.RUnlock()

	for _, s := range subs {
		if !s.match(e) {
			continue
		}
		h.deliver(s.fn, e)
	}
}

func (h *Hub) deliver(fn func(Event), e Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error(context.Background(), "observe: event subscriber panicked",
				Field{Key: "panic", Value: r},
				Field{Key: "source", Value: e.Source()},
			)
		}
	}()
	fn(e)
}
