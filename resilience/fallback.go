package resilience

import (
	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// FallbackConfig configures Fallback.
type FallbackConfig struct {
	// StatusCodes, if non-empty, replaces the default non-2xx rule: only a
	// response whose status is in this set (or a non-nil error) is
	// classified as a failure. Only the default ShouldFallback reads it; a
	// caller-supplied ShouldFallback ignores it.
	StatusCodes map[int]bool

	// ShouldFallback classifies an outcome as a failure requiring the
	// fallback action. Default: a non-nil error, or a response whose status
	// is in StatusCodes when that set is non-empty, otherwise any non-2xx
	// response.
	ShouldFallback func(resp httpmsg.Response, err error) bool

	// Action produces a substitute response for a classified failure. Its
	// own failure is surfaced as the primary error.
	Action func(ctx *httpmsg.Context, err error) (httpmsg.Response, error)

	// Hub receives a FallbackEvent on every invocation of Action. Defaults
	// to observe.DefaultHub.
	Hub *observe.Hub
}

// Fallback is a DelegatingHandler that substitutes a response produced by
// Action when the inner handler's outcome is classified as a failure.
type Fallback struct {
	pipeline.DelegatingHandler
	config FallbackConfig
}

// NewFallback builds a Fallback handler.
func NewFallback(config FallbackConfig) *Fallback {
	if config.ShouldFallback == nil {
		config.ShouldFallback = defaultShouldFallback(config.StatusCodes)
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &Fallback{config: config}
}

func defaultShouldFallback(codes map[int]bool) func(httpmsg.Response, error) bool {
	return func(resp httpmsg.Response, err error) bool {
		if err != nil {
			return true
		}
		if len(codes) > 0 {
			return codes[resp.StatusCode()]
		}
		return !resp.IsSuccess()
	}
}

// Handle calls the inner handler and, on a classified failure, invokes
// Action instead of propagating the original outcome.
func (f *Fallback) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	resp, err := f.Next().Handle(ctx)
	if !f.config.ShouldFallback(resp, err) {
		if err != nil {
			return httpmsg.Response{}, err
		}
		return resp, nil
	}

	f.config.Hub.Publish(observe.FallbackEvent{Err: err})
	return f.config.Action(ctx, err)
}
