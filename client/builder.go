package client

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
	"github.com/jonwraymond/httpresil/resilience"
)

// ClientBuilder fluently composes a pipeline and returns a
// *ResilientHttpClient. Handlers added via Retry/CircuitBreaker/...
// /AddHandler are linked in call order, outermost-first; Logging is always
// installed as the true outermost stage regardless of when it was called,
// ahead of config.Bind's fixed composition order for the resilience
// subsections.
type ClientBuilder struct {
	baseURI        string
	defaultHeaders httpmsg.Header
	streaming      bool
	httpClient     *http.Client
	registry       *resilience.Registry
	hub            *observe.Hub
	loggingConfig  *LoggingHandlerConfig
	stages         []pipeline.Handler
	err            error
}

// NewClientBuilder returns an empty ClientBuilder.
func NewClientBuilder() *ClientBuilder {
	return &ClientBuilder{
		defaultHeaders: httpmsg.NewHeader(),
		registry:       resilience.DefaultRegistry,
		hub:            observe.DefaultHub,
	}
}

// BaseURI sets a prefix prepended to every relative URI the client is
// asked to call.
func (b *ClientBuilder) BaseURI(uri string) *ClientBuilder {
	b.baseURI = uri
	return b
}

// DefaultHeader sets a header sent on every request issued by the built
// client, unless the per-call request overrides it.
func (b *ClientBuilder) DefaultHeader(key, value string) *ClientBuilder {
	b.defaultHeaders.Set(key, value)
	return b
}

// Registry overrides the circuit breaker registry CircuitBreaker resolves
// against. Defaults to resilience.DefaultRegistry.
func (b *ClientBuilder) Registry(registry *resilience.Registry) *ClientBuilder {
	b.registry = registry
	return b
}

// Hub overrides the event hub every policy publishes to. Defaults to
// observe.DefaultHub.
func (b *ClientBuilder) Hub(hub *observe.Hub) *ClientBuilder {
	b.hub = hub
	return b
}

// Logging installs LoggingHandler as the outermost stage.
func (b *ClientBuilder) Logging(config LoggingHandlerConfig) *ClientBuilder {
	b.loggingConfig = &config
	return b
}

// Retry installs a resilience.Retry stage.
func (b *ClientBuilder) Retry(config resilience.RetryConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewRetry(config))
}

// CircuitBreaker installs a resilience.CircuitBreaker stage, resolved
// against this builder's Registry.
func (b *ClientBuilder) CircuitBreaker(config resilience.CircuitBreakerConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewCircuitBreaker(b.registry, config))
}

// Timeout installs a resilience.Timeout stage.
func (b *ClientBuilder) Timeout(config resilience.TimeoutConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewTimeout(config))
}

// Bulkhead installs a resilience.Bulkhead stage.
func (b *ClientBuilder) Bulkhead(config resilience.BulkheadConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewBulkhead(config))
}

// Hedging installs a resilience.Hedging stage.
func (b *ClientBuilder) Hedging(config resilience.HedgingConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewHedging(config))
}

// Fallback installs a resilience.Fallback stage.
func (b *ClientBuilder) Fallback(config resilience.FallbackConfig) *ClientBuilder {
	if config.Hub == nil {
		config.Hub = b.hub
	}
	return b.use(resilience.NewFallback(config))
}

// RateLimiter installs a client-side resilience.RateLimiter stage for
// self-throttling outbound calls (distinct from server-side admission
// control, which this module does not address).
func (b *ClientBuilder) RateLimiter(config resilience.RateLimiterConfig) *ClientBuilder {
	return b.use(resilience.NewRateLimiter(config))
}

// AddHandler installs a caller-supplied custom DelegatingHandler at this
// point in the call order.
func (b *ClientBuilder) AddHandler(h pipeline.Handler) *ClientBuilder {
	return b.use(h)
}

// HTTPClient overrides the *net/http.Client the default transport wraps.
// The client retains ownership: Close never touches it.
func (b *ClientBuilder) HTTPClient(c *http.Client) *ClientBuilder {
	b.httpClient = c
	return b
}

// StreamingMode sets the client's default response mode to streaming;
// per-request metadata may still override it.
func (b *ClientBuilder) StreamingMode() *ClientBuilder {
	b.streaming = true
	return b
}

func (b *ClientBuilder) use(h pipeline.Handler) *ClientBuilder {
	if _, ok := h.(delegatingStage); !ok {
		b.err = errors.New("client: handler does not implement SetNext and cannot be composed")
		return b
	}
	b.stages = append(b.stages, h)
	return b
}

// delegatingStage mirrors pipeline's unexported "delegating" interface so
// use() can validate a stage without importing pipeline internals.
type delegatingStage interface {
	SetNext(next pipeline.Handler)
}

// Build links every configured stage, outermost-first with Logging always
// leading, into a pipeline.Handler terminating in an HTTPTransport-backed
// Terminal, and returns a ready-to-use *ResilientHttpClient.
func (b *ClientBuilder) Build() (*ResilientHttpClient, error) {
	if b.err != nil {
		return nil, b.err
	}

	transport := NewHTTPTransport(b.httpClient, b.streaming)
	var terminal *pipeline.Terminal
	if b.httpClient == nil {
		// No *http.Client was injected: the transport and its
		// *http.Client were created internally (the latter using
		// net/http's default RoundTripper), so the Terminal owns them.
		terminal = pipeline.NewOwnedTerminal(transport)
	} else {
		terminal = pipeline.NewTerminal(transport)
	}

	builder := pipeline.NewBuilder().Terminal(terminal)
	if b.loggingConfig != nil {
		builder.Use(NewLoggingHandler(*b.loggingConfig))
	}
	for _, stage := range b.stages {
		builder.Use(stage)
	}

	handler, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &ResilientHttpClient{
		handler:        handler,
		terminal:       terminal,
		baseURI:        b.baseURI,
		defaultHeaders: b.defaultHeaders,
		streaming:      b.streaming,
	}, nil
}
