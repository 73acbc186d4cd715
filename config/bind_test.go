package config

import (
	"testing"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
	"github.com/jonwraymond/httpresil/resilience"
)

func TestBind_SkipsAbsentSubsections(t *testing.T) {
	calls := 0
	terminal := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		calls++
		return httpmsg.NewBufferedResponse(200, nil, nil, 0), nil
	})

	cfg := PipelineConfig{
		Timeout: &TimeoutConfig{Seconds: 1},
	}

	h, err := Bind(cfg, resilience.NewRegistry(), terminal)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if _, ok := h.(*resilience.Timeout); !ok {
		t.Fatalf("outermost handler = %T, want *resilience.Timeout", h)
	}

	_, err = h.Handle(httpmsg.NewContext(httpmsg.NewRequest(httpmsg.MethodGet, "http://x", nil, nil, nil)))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("terminal calls = %d, want 1", calls)
	}
}

func TestBind_RetryAroundCircuitBreakerExhausts(t *testing.T) {
	attempts := 0
	terminal := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		attempts++
		return httpmsg.NewBufferedResponse(503, nil, nil, 0), nil
	})

	cfg := PipelineConfig{
		Retry: &RetryConfig{
			MaxRetries: 1,
			Backoff:    BackoffConfig{Type: "constant", BaseMs: 1},
		},
		CircuitBreaker: &CircuitBreakerConfig{
			CircuitName:      "bind-test-circuit",
			FailureThreshold: 10,
			BreakSeconds:     1,
		},
	}

	h, err := Bind(cfg, resilience.NewRegistry(), terminal)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	ctx := httpmsg.NewContext(httpmsg.NewRequest(httpmsg.MethodGet, "http://x", nil, nil, nil))
	resp, err := h.Handle(ctx)
	if err == nil {
		t.Fatalf("Handle() err = nil, resp = %+v, want RetryExhaustedError", resp)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2 (1 initial + 1 retry)", attempts)
	}
}

func TestBind_FallbackSubstitutesDefaultResponse(t *testing.T) {
	terminal := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(500, nil, nil, 0), nil
	})

	cfg := PipelineConfig{
		Fallback: &FallbackConfig{StatusCodes: []int{500}},
	}

	h, err := Bind(cfg, resilience.NewRegistry(), terminal)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	resp, err := h.Handle(httpmsg.NewContext(httpmsg.NewRequest(httpmsg.MethodGet, "http://x", nil, nil, nil)))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.StatusCode() != 200 {
		t.Errorf("StatusCode() = %d, want 200 from default fallback action", resp.StatusCode())
	}
}

func TestBind_BulkheadLimitsWithoutQueueTimeout(t *testing.T) {
	terminal := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(200, nil, nil, 0), nil
	})
	cfg := PipelineConfig{
		BulkheadIsolation: &BulkheadIsolationConfig{MaxConcurrentRequests: 1, MaxQueueSize: 1},
	}
	h, err := Bind(cfg, resilience.NewRegistry(), terminal)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	bh, ok := h.(*resilience.Bulkhead)
	if !ok {
		t.Fatalf("outermost handler = %T, want *resilience.Bulkhead", h)
	}
	m := bh.Metrics()
	if m.MaxConcurrency != 1 || m.MaxQueueDepth != 1 {
		t.Errorf("Metrics() = %+v", m)
	}
}
