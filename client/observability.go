package client

import (
	"context"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// ObservedHandler is a DelegatingHandler wired onto observe.Middleware —
// a tracer+metrics+logger wrapper generalized here to carry a typed
// httpmsg.Request/Response through its any-typed input/output instead of
// a generic operation payload. Installing one
// (typically just inside Logging, outside the resilience stages) gets
// every call a span, a duration histogram, and an error counter without
// any policy needing to know OpenTelemetry exists.
type ObservedHandler struct {
	pipeline.DelegatingHandler
	middleware *observe.Middleware
	meta       observe.OperationMeta
}

// NewObservedHandler builds an ObservedHandler from obs, labeling every
// span and metric with meta (typically meta.Name is the client's name).
func NewObservedHandler(obs observe.Observer, meta observe.OperationMeta) (*ObservedHandler, error) {
	middleware, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, err
	}
	return &ObservedHandler{middleware: middleware, meta: meta}, nil
}

// Handle runs the inner handler through Middleware.Wrap, translating
// between httpmsg's typed Request/Response and Middleware's any-typed
// ExecuteFunc signature.
func (h *ObservedHandler) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	wrapped := h.middleware.Wrap(func(goCtx context.Context, tool observe.OperationMeta, input any) (any, error) {
		return h.Next().Handle(ctx)
	})

	result, err := wrapped(ctx.Token().Context(), h.meta, ctx.Request())
	if err != nil {
		return httpmsg.Response{}, err
	}
	resp, _ := result.(httpmsg.Response)
	return resp, nil
}
