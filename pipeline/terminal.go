package pipeline

import (
	"io"
	"sync"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
)

// Transport is the swappable leaf that turns a request value into a
// response value. It is the one external collaborator this package depends
// on at an interface only — the real implementation lives in package
// client and wraps *net/http.Client.
type Transport interface {
	RoundTrip(ctx *httpmsg.Context) (httpmsg.Response, error)
}

// TransportFunc adapts a plain function to a Transport.
type TransportFunc func(ctx *httpmsg.Context) (httpmsg.Response, error)

// RoundTrip calls f(ctx).
func (f TransportFunc) RoundTrip(ctx *httpmsg.Context) (httpmsg.Response, error) {
	return f(ctx)
}

// Terminal is the innermost handler; it owns the underlying Transport. When
// constructed with an injected transport the caller retains ownership and
// Close is a no-op; when constructed with owned=true, Close disposes the
// transport exactly once, even if called concurrently or repeatedly.
type Terminal struct {
	transport Transport
	owned     bool
	closeOnce sync.Once
}

// NewTerminal wraps transport. The caller retains ownership: Close never
// touches transport.
func NewTerminal(transport Transport) *Terminal {
	return &Terminal{transport: transport}
}

// NewOwnedTerminal wraps transport and takes ownership of it: Close
// disposes it (via io.Closer, if implemented) exactly once.
func NewOwnedTerminal(transport Transport) *Terminal {
	return &Terminal{transport: transport, owned: true}
}

// Handle sends the request through the transport and records the elapsed
// time: send-start to body-end for a buffered response, send-start to
// first-byte for a streaming one.
func (t *Terminal) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	if err := ctx.ThrowIfCancelled(); err != nil {
		return httpmsg.Response{}, err
	}

	start := time.Now()
	resp, err := t.transport.RoundTrip(ctx)
	if err != nil {
		return httpmsg.Response{}, err
	}

	// Buffered: duration covers send-start to body-end, i.e. "now" since
	// the transport only returns once the body is fully read. Streaming:
	// duration covers send-start to first-byte, i.e. "now" since the
	// transport returns as soon as the response headers have arrived,
	// before any body chunk is read.
	// Both cases are simply "time since start" at the point RoundTrip
	// returns; the distinction lives in what the Transport implementation
	// does before returning, not in how Terminal measures it.
	return resp.WithDuration(time.Since(start)), nil
}

// Close disposes the underlying transport exactly once, if this Terminal
// owns it.
func (t *Terminal) Close() error {
	if !t.owned {
		return nil
	}
	var err error
	t.closeOnce.Do(func() {
		if closer, ok := t.transport.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}
