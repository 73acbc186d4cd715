package config

import (
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
	"github.com/jonwraymond/httpresil/resilience"
)

// Bind composes cfg into a pipeline terminating in terminal, in the fixed
// outer-to-inner order Retry -> CircuitBreaker -> Hedging -> Timeout ->
// Bulkhead -> Fallback -> Terminal, skipping any subsection left nil in
// cfg. Logging is not one of this document's recognized subsections, and
// Bind installs no Logging stage: [client.ClientBuilder]'s Logging stage
// wraps only a pipeline the builder assembles itself, not one returned by
// Bind.
//
// registry resolves CircuitBreaker's CircuitName; pass
// [resilience.DefaultRegistry] unless the caller needs an isolated
// registry (tests typically do).
func Bind(cfg PipelineConfig, registry *resilience.Registry, terminal pipeline.Handler) (pipeline.Handler, error) {
	builder := pipeline.NewBuilder().Terminal(terminal)

	if cfg.Retry != nil {
		builder.Use(resilience.NewRetry(retryPolicy(*cfg.Retry)))
	}
	if cfg.CircuitBreaker != nil {
		builder.Use(resilience.NewCircuitBreaker(registry, circuitBreakerPolicy(*cfg.CircuitBreaker)))
	}
	if cfg.Hedging != nil {
		builder.Use(resilience.NewHedging(hedgingPolicy(*cfg.Hedging)))
	}
	if cfg.Timeout != nil {
		builder.Use(resilience.NewTimeout(timeoutPolicy(*cfg.Timeout)))
	}
	if cfg.BulkheadIsolation != nil {
		builder.Use(resilience.NewBulkhead(bulkheadPolicy(*cfg.BulkheadIsolation)))
	}
	if cfg.Fallback != nil {
		builder.Use(resilience.NewFallback(fallbackPolicy(*cfg.Fallback)))
	}

	return builder.Build()
}

func retryPolicy(c RetryConfig) resilience.RetryConfig {
	strategy := resilience.BackoffExponential
	switch c.Backoff.Type {
	case "constant":
		strategy = resilience.BackoffConstant
	case "linear":
		strategy = resilience.BackoffLinear
	}
	return resilience.RetryConfig{
		MaxRetries:   c.MaxRetries,
		InitialDelay: time.Duration(c.Backoff.BaseMs) * time.Millisecond,
		Strategy:     strategy,
		Jitter:       c.Backoff.UseJitter,
	}
}

func circuitBreakerPolicy(c CircuitBreakerConfig) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		CircuitName:      c.CircuitName,
		FailureThreshold: c.FailureThreshold,
		BreakDuration:    time.Duration(c.BreakSeconds * float64(time.Second)),
	}
}

func timeoutPolicy(c TimeoutConfig) resilience.TimeoutConfig {
	return resilience.TimeoutConfig{
		Budget: time.Duration(c.Seconds * float64(time.Second)),
	}
}

func bulkheadPolicy(c BulkheadIsolationConfig) resilience.BulkheadConfig {
	queueTimeout := 5 * time.Second
	if c.QueueTimeoutMs > 0 {
		queueTimeout = time.Duration(c.QueueTimeoutMs) * time.Millisecond
	}
	return resilience.BulkheadConfig{
		MaxConcurrency: c.MaxConcurrentRequests,
		MaxQueueDepth:  c.MaxQueueSize,
		QueueTimeout:   queueTimeout,
	}
}

func hedgingPolicy(c HedgingConfig) resilience.HedgingConfig {
	return resilience.HedgingConfig{
		HedgeAfter:        time.Duration(c.HedgeAfterMs) * time.Millisecond,
		MaxHedgedAttempts: c.MaxHedgedAttempts,
	}
}

// fallbackPolicy builds the resilience.FallbackConfig for a document's
// "Fallback" subsection. The document can only express which outcomes
// count as a failure (StatusCodes) — a JSON value has no way to carry a
// substitute-response function, so Bind supplies a minimal default action
// (an empty 200) and documents it; a caller that needs a real substitute
// response builds the pipeline by hand with resilience.NewFallback
// instead of going through Bind.
func fallbackPolicy(c FallbackConfig) resilience.FallbackConfig {
	codes := make(map[int]bool, len(c.StatusCodes))
	for _, code := range c.StatusCodes {
		codes[code] = true
	}
	return resilience.FallbackConfig{
		StatusCodes: codes,
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			return httpmsg.NewBufferedResponse(200, nil, nil, 0), nil
		},
	}
}
