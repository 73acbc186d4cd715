// Package pipeline implements the chain-of-responsibility that every
// outbound call runs through: an ordered stack of Handlers, the outermost
// conventionally Logging and the innermost the Terminal transport.
//
// Data flows outward-in on the request path and inner-out on the response
// path. A DelegatingHandler may short-circuit (reject without calling the
// next handler), retry (call the next handler repeatedly), fan out (call
// the next handler concurrently), or merely observe — resilience.Retry,
// resilience.CircuitBreaker, resilience.Bulkhead, resilience.Hedging, and
// resilience.Fallback are all DelegatingHandlers built on top of this
// package; this package itself only defines the chain shape.
package pipeline
