package health

import (
	"context"
	"testing"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
	"github.com/jonwraymond/httpresil/resilience"
)

func TestCircuitRegistryChecker_HealthyWhenAllClosed(t *testing.T) {
	registry := resilience.NewRegistry()
	registry.GetOrCreate(resilience.CircuitBreakerConfig{CircuitName: "a"})
	registry.GetOrCreate(resilience.CircuitBreakerConfig{CircuitName: "b"})

	checker := NewCircuitRegistryChecker("circuits", registry)
	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	if checker.Name() != "circuits" {
		t.Errorf("Name() = %q", checker.Name())
	}
}

func TestCircuitRegistryChecker_UnhealthyWhenOpen(t *testing.T) {
	registry := resilience.NewRegistry()
	cb := resilience.NewCircuitBreaker(registry, resilience.CircuitBreakerConfig{
		CircuitName:      "flaky",
		FailureThreshold: 1,
		BreakDuration:    time.Minute,
	})

	failing := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(500, nil, nil, 0), nil
	})
	h, err := pipeline.NewList(cb, failing)
	if err != nil {
		t.Fatalf("NewList() error = %v", err)
	}
	_, _ = h.Handle(httpmsg.NewContext(httpmsg.NewRequest(httpmsg.MethodGet, "http://x", nil, nil, nil)))

	result := NewCircuitRegistryChecker("circuits", registry).Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
}

func TestBulkheadChecker_Levels(t *testing.T) {
	bh := resilience.NewBulkhead(resilience.BulkheadConfig{MaxConcurrency: 1, MaxQueueDepth: 2})
	checker := NewBulkheadChecker("bulkhead", bh)

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy for empty bulkhead", result.Status)
	}
}
