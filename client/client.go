package client

import (
	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
)

// ResilientHttpClient is the top-level entry point: it owns an assembled
// pipeline.Handler and exposes verb helpers over it. Construct one via
// ClientBuilder or Factory.
type ResilientHttpClient struct {
	handler        pipeline.Handler
	terminal       *pipeline.Terminal
	baseURI        string
	defaultHeaders httpmsg.Header
	streaming      bool
}

// CallOption customizes a single verb-helper call.
type CallOption func(*httpmsg.RequestBuilder)

// WithHeader adds a header to this call only.
func WithHeader(key, value string) CallOption {
	return func(b *httpmsg.RequestBuilder) { b.Header(key, value) }
}

// WithBody sets the request body for this call only.
func WithBody(body []byte) CallOption {
	return func(b *httpmsg.RequestBuilder) { b.Body(body) }
}

// WithMetadata sets a per-request metadata override, e.g.
// WithMetadata("streaming", true).
func WithMetadata(key string, value any) CallOption {
	return func(b *httpmsg.RequestBuilder) { b.Metadata(key, value) }
}

func (c *ResilientHttpClient) resolveURI(uri string) string {
	if c.baseURI == "" {
		return uri
	}
	return c.baseURI + uri
}

// Do builds a request for method+uri, applies opts and the client's
// default headers, and runs it through the assembled pipeline.
func (c *ResilientHttpClient) Do(method httpmsg.Method, uri string, opts ...CallOption) (httpmsg.Response, error) {
	b := httpmsg.NewRequestBuilder().Method(method).URI(c.resolveURI(uri))
	for key, values := range c.defaultHeaders {
		for _, v := range values {
			b.Header(key, v)
		}
	}
	for _, opt := range opts {
		opt(b)
	}

	req, err := b.Build()
	if err != nil {
		return httpmsg.Response{}, err
	}

	ctx := httpmsg.NewContext(req)
	return c.handler.Handle(ctx)
}

// Get issues a GET request.
func (c *ResilientHttpClient) Get(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodGet, uri, opts...)
}

// Post issues a POST request.
func (c *ResilientHttpClient) Post(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodPost, uri, opts...)
}

// Put issues a PUT request.
func (c *ResilientHttpClient) Put(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodPut, uri, opts...)
}

// Patch issues a PATCH request.
func (c *ResilientHttpClient) Patch(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodPatch, uri, opts...)
}

// Delete issues a DELETE request.
func (c *ResilientHttpClient) Delete(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodDelete, uri, opts...)
}

// Head issues a HEAD request.
func (c *ResilientHttpClient) Head(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodHead, uri, opts...)
}

// Options issues an OPTIONS request.
func (c *ResilientHttpClient) Options(uri string, opts ...CallOption) (httpmsg.Response, error) {
	return c.Do(httpmsg.MethodOptions, uri, opts...)
}

// Close calls the Terminal's Close. The Terminal owns the transport only
// when no *net/http.Client was injected via ClientBuilder.HTTPClient, and
// even then Close releases nothing: HTTPTransport does not implement
// io.Closer, so no connections are closed. Idempotent.
func (c *ResilientHttpClient) Close() error {
	return c.terminal.Close()
}
