// Package httpmsg defines the core value types threaded through a resilience
// pipeline: methods, requests, responses, the per-call context, and
// cancellation tokens.
//
// Types here are deliberately independent of net/http so that the pipeline
// can be driven by tests without a real transport, and so a Terminal handler
// is free to translate to/from net/http at the single point where it
// actually talks to the network.
package httpmsg
