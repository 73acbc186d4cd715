// Package config loads a JSON configuration document into policy values
// and binds them into a pipeline.
//
// The document's top-level "Resilience" section carries exactly the
// subsections documented on [PipelineConfig]: Retry, Timeout,
// CircuitBreaker, BulkheadIsolation, Hedging, Fallback. A subsection left
// absent from the document is skipped rather than defaulted — [Bind] only
// installs a stage for a subsection that was actually present.
//
// String fields run through [secret.ExpandEnvStrict] before the document
// is otherwise interpreted, so a value may reference "${SERVICE_NAME}" and
// have it resolved from the process environment at load time.
//
// CircuitBreaker.CircuitName additionally runs through a [secret.Resolver],
// so it may instead (or in addition) reference "secretref:<provider>:<ref>"
// and have it resolved against one or more [secret.Provider]s supplied to
// [LoadWithProviders]. [Load] resolves with no providers registered, so a
// document using "${VAR}" behaves exactly as before and one using a
// secretref fails loudly rather than passing the literal string through.
package config
