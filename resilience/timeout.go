package resilience

import (
	"context"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// TimeoutConfig configures Timeout.
type TimeoutConfig struct {
	// Budget is the per-attempt deadline.
	Budget time.Duration

	// Hub receives a TimeoutEvent on expiry. Defaults to observe.DefaultHub.
	Hub *observe.Hub
}

// Timeout is a DelegatingHandler enforcing a per-attempt deadline. It
// composes under Retry (each attempt gets a fresh deadline) and Hedging
// (each speculative attempt gets its own) because the deadline is derived
// fresh from ctx on every Handle call.
type Timeout struct {
	pipeline.DelegatingHandler
	config TimeoutConfig
}

// NewTimeout builds a Timeout handler.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Budget <= 0 {
		config.Budget = 30 * time.Second
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &Timeout{config: config}
}

// Handle derives a child context bounded by config.Budget, cancels it on
// expiry (propagating downward), and discards any partial response the
// inner handler had in flight.
func (t *Timeout) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx.Token().Context(), t.config.Budget)
	defer cancel()

	child := ctx.Fork()

	type outcome struct {
		resp httpmsg.Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		resp, err := t.Next().Handle(child)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case o := <-done:
		return o.resp, o.err
	case <-deadlineCtx.Done():
		child.Token().Cancel("timeout budget exceeded")
		t.config.Hub.Publish(observe.TimeoutEvent{Budget: t.config.Budget})
		return httpmsg.Response{}, &TimeoutError{Budget: t.config.Budget}
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig { return t.config }
