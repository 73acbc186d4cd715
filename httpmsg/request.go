package httpmsg

import "errors"

// ErrMissingURI is returned by RequestBuilder.Build when no URI was set.
var ErrMissingURI = errors.New("httpmsg: request URI is required")

// Request is an immutable HTTP request value. Zero value is not useful;
// construct one via NewRequest or RequestBuilder.
type Request struct {
	method   Method
	uri      string
	header   Header
	body     []byte
	metadata map[string]any
}

// NewRequest builds a Request directly. header, body, and metadata may be
// nil; nil header/metadata are treated as empty.
func NewRequest(method Method, uri string, header Header, body []byte, metadata map[string]any) Request {
	return Request{
		method:   method,
		uri:      uri,
		header:   header.Clone(),
		body:     append([]byte(nil), body...),
		metadata: cloneMetadata(metadata),
	}
}

// Method returns the request method.
func (r Request) Method() Method { return r.method }

// URI returns the target URI.
func (r Request) URI() string { return r.uri }

// Header returns an unmodifiable view of the request headers.
func (r Request) Header() Header { return r.header.unmodifiable() }

// Body returns the request body bytes (nil if there is none).
func (r Request) Body() []byte { return append([]byte(nil), r.body...) }

// Metadata returns an unmodifiable view of the per-request metadata map.
func (r Request) Metadata() map[string]any {
	return cloneMetadata(r.metadata)
}

// MetadataValue returns the metadata value for key and whether it is set.
func (r Request) MetadataValue(key string) (any, bool) {
	v, ok := r.metadata[key]
	return v, ok
}

// CopyWith returns a new Request with the given overrides applied; any zero
// value (nil header/body/metadata, empty method/uri) leaves the
// corresponding field unchanged.
func (r Request) CopyWith(method Method, uri string, header Header, body []byte, metadata map[string]any) Request {
	out := r
	if method != "" {
		out.method = method
	}
	if uri != "" {
		out.uri = uri
	}
	if header != nil {
		out.header = header.Clone()
	}
	if body != nil {
		out.body = append([]byte(nil), body...)
	}
	if metadata != nil {
		out.metadata = cloneMetadata(metadata)
	}
	return out
}

// WithHeader returns a new Request with key set to value, leaving all other
// headers untouched.
func (r Request) WithHeader(key, value string) Request {
	out := r
	out.header = r.header.Clone()
	if out.header == nil {
		out.header = NewHeader()
	}
	out.header.Set(key, value)
	return out
}

// WithMetadata returns a new Request with metadata[key] set to value.
func (r Request) WithMetadata(key string, value any) Request {
	out := r
	out.metadata = cloneMetadata(r.metadata)
	if out.metadata == nil {
		out.metadata = make(map[string]any, 1)
	}
	out.metadata[key] = value
	return out
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RequestBuilder incrementally constructs a Request.
type RequestBuilder struct {
	method   Method
	uri      string
	header   Header
	body     []byte
	metadata map[string]any
}

// NewRequestBuilder returns a builder defaulted to GET with no URI set.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{method: MethodGet, header: NewHeader()}
}

// Method sets the request method.
func (b *RequestBuilder) Method(m Method) *RequestBuilder {
	b.method = m
	return b
}

// URI sets the target URI.
func (b *RequestBuilder) URI(uri string) *RequestBuilder {
	b.uri = uri
	return b
}

// Header sets a single header value.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	if b.header == nil {
		b.header = NewHeader()
	}
	b.header.Set(key, value)
	return b
}

// Body sets the request body.
func (b *RequestBuilder) Body(body []byte) *RequestBuilder {
	b.body = body
	return b
}

// Metadata sets a single metadata entry.
func (b *RequestBuilder) Metadata(key string, value any) *RequestBuilder {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
	return b
}

// Build validates and returns the constructed Request. Fails with
// ErrMissingURI when no URI was set.
func (b *RequestBuilder) Build() (Request, error) {
	if b.uri == "" {
		return Request{}, ErrMissingURI
	}
	return NewRequest(b.method, b.uri, b.header, b.body, b.metadata), nil
}
