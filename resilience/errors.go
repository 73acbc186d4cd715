package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for errors.Is checks against the simple "was this kind of
// rejection at all" question. Each typed error below also implements Is
// against its matching sentinel.
var (
	ErrCircuitOpen    = errors.New("resilience: circuit breaker is open")
	ErrBulkheadFull   = errors.New("resilience: bulkhead rejected the call")
	ErrRetryExhausted = errors.New("resilience: retry attempts exhausted")
	ErrTimeout        = errors.New("resilience: operation timed out")
)

// CircuitOpenError is returned when a named circuit refuses a call without
// reaching the inner handler. RetryAfter is advisory: the core does not
// enforce it, callers may use it to schedule a polite back-off.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("resilience: circuit %q is open, retry after %s", e.Name, e.RetryAfter.Format(time.RFC3339))
}

func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// BulkheadRejectedError is returned when a bulkhead refuses a call, either
// because both the concurrency limit and the queue are saturated
// (ReasonQueueFull) or because a queued waiter's deadline elapsed before a
// slot freed (ReasonQueueTimeout).
type BulkheadRejectedError struct {
	Reason        string
	MaxConcurrency int
	MaxQueueDepth  int
}

const (
	ReasonQueueFull    = "queueFull"
	ReasonQueueTimeout = "queueTimeout"
)

func (e *BulkheadRejectedError) Error() string {
	return fmt.Sprintf("resilience: bulkhead rejected call (%s, maxConcurrency=%d, maxQueueDepth=%d)",
		e.Reason, e.MaxConcurrency, e.MaxQueueDepth)
}

func (e *BulkheadRejectedError) Is(target error) bool { return target == ErrBulkheadFull }

// RetryExhaustedError wraps the last error once the retry budget runs
// out. Last is nil when the last attempt produced a response (for example
// a 503) rather than an error; that response is not kept on the error.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("resilience: retry exhausted after %d attempts: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("resilience: retry exhausted after %d attempts", e.Attempts)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }

// TimeoutError is returned when a per-attempt deadline expires before the
// inner handler completes.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("resilience: operation exceeded timeout budget of %s", e.Budget)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// TransportError wraps a failure originating from the Terminal's transport
// (network, DNS, TLS) so that policies above it can distinguish it from a
// policy-synthesized error without inspecting error strings.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("resilience: transport error: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }
