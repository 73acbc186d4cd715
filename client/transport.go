package client

import (
	"bytes"
	"io"
	"net/http"

	"github.com/jonwraymond/httpresil/httpmsg"
)

// streamingMetadataKey is the request metadata override key recognized by
// HTTPTransport: when present and true, the response is handed back as a
// streaming httpmsg.Response regardless of the client's default; when
// present and false, it forces a buffered response.
const streamingMetadataKey = "streaming"

// HTTPTransport adapts *net/http.Client to pipeline.Transport, the one
// point where this module actually reaches for a real network stack. It
// is a swappable leaf behind an interface — every other package only
// ever sees pipeline.Transport.
type HTTPTransport struct {
	httpClient       *http.Client
	defaultStreaming bool
}

// NewHTTPTransport wraps httpClient. defaultStreaming sets the mode used
// when a request's metadata does not carry a "streaming" override.
func NewHTTPTransport(httpClient *http.Client, defaultStreaming bool) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &HTTPTransport{httpClient: httpClient, defaultStreaming: defaultStreaming}
}

// RoundTrip translates an httpmsg.Request into a *net/http.Request, sends
// it, and translates the *net/http.Response back. A transport-level
// failure (network, DNS, TLS) is returned as the bare net/http error;
// neither HTTPTransport nor any stage of this module wraps it in a
// *resilience.TransportError. resilience.Retry's default predicate
// (which checks err != nil) retries it as it is.
func (t *HTTPTransport) RoundTrip(ctx *httpmsg.Context) (httpmsg.Response, error) {
	req := ctx.Request()

	var body io.Reader
	if b := req.Body(); len(b) > 0 {
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx.Token().Context(), req.Method().String(), req.URI(), body)
	if err != nil {
		return httpmsg.Response{}, err
	}
	for key, values := range req.Header() {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	httpResp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return httpmsg.Response{}, err
	}

	header := httpmsg.NewHeader()
	for key, values := range httpResp.Header {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	if t.wantsStreaming(req) {
		return t.streamingResponse(httpResp.StatusCode, header, httpResp.Body), nil
	}
	return t.bufferedResponse(httpResp.StatusCode, header, httpResp.Body)
}

func (t *HTTPTransport) wantsStreaming(req httpmsg.Request) bool {
	if v, ok := req.MetadataValue(streamingMetadataKey); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return t.defaultStreaming
}

func (t *HTTPTransport) bufferedResponse(status int, header httpmsg.Header, body io.ReadCloser) (httpmsg.Response, error) {
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return httpmsg.Response{}, err
	}
	return httpmsg.NewBufferedResponse(status, header, data, 0), nil
}

// streamingResponse drains body onto a buffered channel of Chunks on a
// background goroutine, so RoundTrip returns once the response headers
// have arrived, without waiting for any body chunk: for a streaming
// response, elapsed duration covers send-start to the headers, not
// full-body drain.
func (t *HTTPTransport) streamingResponse(status int, header httpmsg.Header, body io.ReadCloser) httpmsg.Response {
	chunks := make(chan httpmsg.Chunk, 1)
	go func() {
		defer body.Close()
		defer close(chunks)
		buf := make([]byte, 32*1024)
		for {
			n, err := body.Read(buf)
			if n > 0 {
				data := append([]byte(nil), buf[:n]...)
				chunks <- httpmsg.Chunk{Data: data}
			}
			if err != nil {
				if err != io.EOF {
					chunks <- httpmsg.Chunk{Err: err}
				}
				return
			}
		}
	}()
	return httpmsg.NewStreamingResponse(status, header, chunks, 0)
}
