// Package client is the external sugar over pipeline, resilience, and
// config: a fluent [ClientBuilder] that composes a pipeline.Handler,
// verb helpers on [ResilientHttpClient], a named-client [Factory], and
// two ready-made DelegatingHandlers — [LoggingHandler] and
// [BearerHandler] — that are common enough to ship rather than make every
// caller reimplement.
//
// None of the core packages (httpmsg, pipeline, resilience, observe,
// config) import this one; it sits at the top of the dependency graph and
// is the only package that reaches for *net/http* to supply the default
// [pipeline.Transport].
package client
