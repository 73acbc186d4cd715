package httpmsg

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is the sentinel wrapped by CancellationError.
var ErrCancelled = errors.New("httpmsg: cancelled")

// CancellationError carries the reason a CancellationToken was cancelled.
type CancellationError struct {
	Reason string
}

func (e *CancellationError) Error() string {
	if e.Reason == "" {
		return "httpmsg: cancelled"
	}
	return "httpmsg: cancelled: " + e.Reason
}

func (e *CancellationError) Unwrap() error { return ErrCancelled }

// CancellationToken is a one-shot cancellation signal. Cancelling a parent
// propagates to all live children; a child may cancel independently without
// affecting siblings or its parent. Built on context.Context internally,
// since that is Go's idiomatic cancellation primitive, but exposes a
// cancellation-specific vocabulary so callers who only need that never
// have to reach for context directly.
type CancellationToken struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu     sync.Mutex
	reason string
}

// NewCancellationToken returns a new top-level token.
func NewCancellationToken() *CancellationToken {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &CancellationToken{ctx: ctx, cancel: cancel}
}

// tokenFromContext wraps an existing context (e.g. one carrying a deadline)
// as a CancellationToken.
func tokenFromContext(ctx context.Context) *CancellationToken {
	ctx, cancel := context.WithCancelCause(ctx)
	return &CancellationToken{ctx: ctx, cancel: cancel}
}

// Child derives a new token that is cancelled whenever t is, but that can
// also be cancelled independently without affecting t or any sibling.
func (t *CancellationToken) Child() *CancellationToken {
	return tokenFromContext(t.ctx)
}

// Cancel cancels t with reason. Idempotent: only the first call sets the
// reason; subsequent calls are no-ops.
func (t *CancellationToken) Cancel(reason string) {
	t.mu.Lock()
	if t.reason == "" {
		t.reason = reason
	}
	t.mu.Unlock()
	t.cancel(&CancellationError{Reason: reason})
}

// IsCancelled reports whether t has been cancelled. Monotonic: once true,
// always true.
func (t *CancellationToken) IsCancelled() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
		return false
	}
}

// Reason returns the cancellation reason, or "" if not cancelled.
func (t *CancellationToken) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// ThrowIfCancelled returns a *CancellationError if t has been cancelled,
// nil otherwise.
func (t *CancellationToken) ThrowIfCancelled() error {
	if !t.IsCancelled() {
		return nil
	}
	return &CancellationError{Reason: t.Reason()}
}

// Done returns a channel that is closed when t is cancelled, for use in
// select statements that must remain responsive to cancellation.
func (t *CancellationToken) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns the underlying context.Context, for handlers (like a
// Terminal transport) that need to pass cancellation through a net/http
// call.
func (t *CancellationToken) Context() context.Context {
	return t.ctx
}
