package client

import (
	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// defaultRedactedHeaders lists the headers redacted from log output by
// default: credentials and session identifiers that should never reach
// structured logs verbatim.
var defaultRedactedHeaders = map[string]bool{
	"Authorization":       true,
	"Proxy-Authorization": true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
}

// LoggingHandlerConfig configures LoggingHandler.
type LoggingHandlerConfig struct {
	// Logger receives one Info entry per completed call (or Error on
	// failure). Defaults to observe.NewLogger("info").
	Logger observe.Logger

	// RedactedHeaders names headers whose values are replaced with
	// "[redacted]" before logging, canonicalized via httpmsg.Header's
	// convention. Defaults to defaultRedactedHeaders.
	RedactedHeaders map[string]bool
}

// LoggingHandler is an observability-only DelegatingHandler: it never
// alters the outcome, only logs it, reusing observe.Logger's redaction
// convention to keep secrets out of structured output.
type LoggingHandler struct {
	pipeline.DelegatingHandler
	config LoggingHandlerConfig
}

// NewLoggingHandler builds a LoggingHandler, applying default values for
// zero-valued fields.
func NewLoggingHandler(config LoggingHandlerConfig) *LoggingHandler {
	if config.Logger == nil {
		config.Logger = observe.NewLogger("info")
	}
	if config.RedactedHeaders == nil {
		config.RedactedHeaders = defaultRedactedHeaders
	}
	return &LoggingHandler{config: config}
}

// Handle logs the request/response pair around calling the inner handler,
// redacting configured headers, then returns the inner outcome unchanged.
func (h *LoggingHandler) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	req := ctx.Request()
	goCtx := ctx.Token().Context()

	resp, err := h.Next().Handle(ctx)

	fields := []observe.Field{
		{Key: "method", Value: req.Method().String()},
		{Key: "uri", Value: req.URI()},
		{Key: "request_headers", Value: h.redact(req.Header())},
	}

	if err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: err.Error()})
		h.config.Logger.Error(goCtx, "http request failed", fields...)
		return httpmsg.Response{}, err
	}

	fields = append(fields,
		observe.Field{Key: "status", Value: resp.StatusCode()},
		observe.Field{Key: "duration_ms", Value: float64(resp.Duration().Milliseconds())},
		observe.Field{Key: "response_headers", Value: h.redact(resp.Header())},
	)
	h.config.Logger.Info(goCtx, "http request completed", fields...)
	return resp, nil
}

func (h *LoggingHandler) redact(header httpmsg.Header) map[string][]string {
	out := make(map[string][]string, len(header))
	for key, values := range header {
		if h.config.RedactedHeaders[key] {
			out[key] = []string{"[redacted]"}
			continue
		}
		out[key] = values
	}
	return out
}
