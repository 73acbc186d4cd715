// Package resilience provides composable HTTP client resilience policies.
//
// Each policy is a [pipeline.DelegatingHandler]: it wraps an inner handler,
// decides what to do with the outcome, and returns its own outcome upward.
// A full client pipeline is built by chaining policies with
// [pipeline.Builder] or [pipeline.NewList], terminating in a transport.
//
// # Policies
//
//   - [Retry]: re-invokes the inner handler on a classified failure, using
//     constant, linear, or exponential backoff with optional full jitter.
//
//   - [CircuitBreaker]: stops calling a failing inner handler once a
//     failure threshold is reached, transitioning Closed → Open → HalfOpen →
//     Closed. Breakers for a given name live in a [Registry] so the same
//     circuit is shared process-wide regardless of how many clients
//     reference it.
//
//   - [Timeout]: bounds a single attempt with a fresh deadline derived from
//     the call's [httpmsg.Context], discarding any partial response once the
//     budget elapses.
//
//   - [Bulkhead]: bounds concurrent in-flight calls and, beyond that bound,
//     queues callers in FIFO order up to a configured depth and per-waiter
//     timeout.
//
//   - [Hedging]: dispatches additional speculative attempts on a staggered
//     schedule when the first attempt is slow, taking the first attempt that
//     does not classify as a failure and cancelling the rest.
//
//   - [Fallback]: substitutes a response produced by a caller-supplied
//     action when the inner handler's outcome is classified as a failure.
//
//   - [RateLimiter]: an optional client-side self-throttle (token bucket),
//     wired only when a caller explicitly adds it; it is not part of the
//     fixed composition order built from a configuration document.
//
// # Composition order
//
// [config.Bind] composes policies in a fixed order (outermost first):
// retry, circuit breaker, hedging, timeout, bulkhead, fallback, terminal;
// it installs no logging stage. A pipeline built by hand through [client.ClientBuilder] may use
// any order; this is simply the convention used when binding a
// configuration document.
//
// # Errors
//
// Each policy returns a typed error in addition to a sentinel usable with
// errors.Is:
//
//   - [CircuitOpenError] / [ErrCircuitOpen]
//   - [BulkheadRejectedError] / [ErrBulkheadFull]
//   - [RetryExhaustedError] / [ErrRetryExhausted] (wraps the last error;
//     a final non-error response is not kept)
//   - [TimeoutError] / [ErrTimeout]
//   - [TransportError] wraps a transport failure so policies above it can
//     distinguish it from a policy-synthesized error. client.HTTPTransport
//     and pipeline.Terminal return transport failures unwrapped, so it
//     appears only where a custom Transport constructs it.
//
// # Observability
//
// Every policy publishes a typed event to an [observe.Hub] (defaulting to
// [observe.DefaultHub]) on the interesting things it does: a scheduled
// retry, a circuit opening or closing, a timeout expiring, a bulkhead
// rejection, a hedge attempt launching, a hedge outcome, a fallback
// invocation. [observe.OtelSink] bridges these onto OpenTelemetry spans and
// counters.
package resilience
