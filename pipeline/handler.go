package pipeline

import "github.com/jonwraymond/httpresil/httpmsg"

// Handler is the single operation every pipeline stage exposes: given a
// Context, produce a Response or fail.
type Handler interface {
	Handle(ctx *httpmsg.Context) (httpmsg.Response, error)
}

// HandlerFunc adapts a plain function to a Handler, mirroring
// net/http.HandlerFunc for the one-off cases (tests, the NoOp pipeline)
// that don't need the DelegatingHandler machinery.
type HandlerFunc func(ctx *httpmsg.Context) (httpmsg.Response, error)

// Handle calls f(ctx).
func (f HandlerFunc) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	return f(ctx)
}

// NoOp returns a Handler that answers every call with an empty 200
// response, for use in tests that need a pipeline but don't care about its
// output.
func NoOp() Handler {
	return HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(200, nil, nil, 0), nil
	})
}

// DelegatingHandler is embedded by every policy handler (retry, circuit
// breaker, timeout, bulkhead, hedging, fallback, logging). It holds exactly
// one inner Handler, assigned once at build time by Builder via SetNext.
// Calling Next before SetNext is a programmer error: the pipeline was never
// correctly assembled, so it panics rather than silently behaving as a
// no-op — the equivalent of dereferencing a nil the caller should never
// have been able to construct in the first place.
type DelegatingHandler struct {
	next Handler
}

// SetNext assigns the inner handler. Builder calls it during assembly. It
// is exported, so any code holding the handler can also call it and
// reassign the inner handler after construction.
func (d *DelegatingHandler) SetNext(next Handler) {
	d.next = next
}

// Next returns the inner handler, or panics if SetNext was never called.
func (d *DelegatingHandler) Next() Handler {
	if d.next == nil {
		panic("pipeline: DelegatingHandler used before SetNext; the pipeline was not assembled via Builder")
	}
	return d.next
}
