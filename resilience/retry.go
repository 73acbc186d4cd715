package resilience

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// BackoffStrategy selects how the delay between retries grows.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier (default 2) each
	// attempt, capped at MaxDelay; jitter applies only when Jitter is set.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly with attempt number.
	BackoffLinear
	// BackoffConstant uses the same delay for every retry.
	BackoffConstant
)

// Unbounded marks RetryConfig.MaxRetries as "retry forever" rather than a
// finite budget.
const Unbounded = -1

// RetryConfig configures Retry.
type RetryConfig struct {
	// Name identifies this handler; it has nothing to do with the circuit
	// breaker registry, and published RetryEvents do not carry it.
	Name string

	// MaxRetries is the number of extra attempts beyond the first, >= 0, or
	// Unbounded for an infinite retry loop.
	MaxRetries int

	// InitialDelay is the base delay fed into the backoff computation.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay before jitter is applied.
	MaxDelay time.Duration

	// Multiplier is the exponential backoff multiplier. Default: 2.0.
	Multiplier float64

	Strategy BackoffStrategy

	// Jitter enables full-jitter: sample uniformly in [0, computed delay].
	Jitter bool

	// ShouldRetry decides whether an attempt's outcome should be retried.
	// Default: retry on 5xx responses and on any non-nil error.
	ShouldRetry func(resp httpmsg.Response, err error, ctx *httpmsg.Context) bool

	// OnRetry is invoked synchronously before suspending for the backoff
	// delay, in addition to (not instead of) the RetryEvent published to
	// Hub.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Hub receives a RetryEvent per scheduled retry. Defaults to
	// observe.DefaultHub.
	Hub *observe.Hub
}

// Retry is a DelegatingHandler that re-invokes the inner handler on a
// classified failure, using a configurable backoff.
type Retry struct {
	pipeline.DelegatingHandler
	config RetryConfig
}

// NewRetry builds a Retry handler, applying default values for
// zero-valued fields.
func NewRetry(config RetryConfig) *Retry {
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.ShouldRetry == nil {
		config.ShouldRetry = defaultShouldRetry
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &Retry{config: config}
}

func defaultShouldRetry(resp httpmsg.Response, err error, _ *httpmsg.Context) bool {
	if err != nil {
		return true
	}
	return resp.IsServerError()
}

// Handle runs the inner handler, retrying per config until the predicate
// declines, the budget is exhausted, or the context is cancelled.
func (r *Retry) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	attempt := 1

	for {
		if err := ctx.ThrowIfCancelled(); err != nil {
			return httpmsg.Response{}, err
		}

		resp, err := r.Next().Handle(ctx)

		if !r.config.ShouldRetry(resp, err, ctx) {
			if err != nil {
				return httpmsg.Response{}, err
			}
			return resp, nil
		}

		if resp.IsStreaming() && resp.Consumed() {
			// The body has already been partially drained downstream; the
			// retry predicate may only have considered status/headers, but
			// re-issuing the request would silently lose bytes the caller
			// may have already read. Surface the outcome as-is.
			if err != nil {
				return httpmsg.Response{}, err
			}
			return resp, nil
		}

		exhausted := r.config.MaxRetries != Unbounded && attempt > r.config.MaxRetries
		if exhausted {
			return httpmsg.Response{}, &RetryExhaustedError{Attempts: attempt, Last: err}
		}

		delay := r.calculateDelay(attempt)

		max := r.config.MaxRetries + 1
		if r.config.MaxRetries == Unbounded {
			max = -1
		}
		r.config.Hub.Publish(observe.RetryEvent{
			Attempt: attempt,
			Max:     max,
			Delay:   delay,
			Err:     err,
		})
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Token().Done():
			return httpmsg.Response{}, ctx.ThrowIfCancelled()
		case <-time.After(delay):
		}

		attempt++
	}
}

func (r *Retry) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		multiplier := math.Pow(r.config.Multiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay = time.Duration(rand.Int64N(int64(delay) + 1))
	}

	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
