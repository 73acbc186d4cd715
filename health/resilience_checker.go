package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/httpresil/resilience"
)

// CircuitRegistryChecker reports Unhealthy when any circuit in a
// resilience.Registry is open, Degraded when at least one circuit is
// half-open but none are open, and Healthy when the whole registry is
// closed: an aggregate "is every circuit closed" view suitable for wiring
// into a readiness probe.
type CircuitRegistryChecker struct {
	name     string
	registry *resilience.Registry
}

// NewCircuitRegistryChecker builds a checker named name over registry.
func NewCircuitRegistryChecker(name string, registry *resilience.Registry) *CircuitRegistryChecker {
	return &CircuitRegistryChecker{name: name, registry: registry}
}

// Name returns the configured checker name.
func (c *CircuitRegistryChecker) Name() string {
	return c.name
}

// Check inspects every registered circuit's snapshot.
func (c *CircuitRegistryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	snapshot := c.registry.Snapshot()
	details := make(map[string]any, len(snapshot))
	open := 0
	degraded := 0

	for name, metrics := range snapshot {
		details[name] = metrics.State.String()
		switch metrics.State {
		case resilience.StateOpen:
			open++
		case resilience.StateHalfOpen:
			degraded++
		}
	}

	if open > 0 {
		return Unhealthy(fmt.Sprintf("%d of %d circuits open", open, len(snapshot)), nil).WithDetails(details)
	}
	if degraded > 0 {
		return Degraded(fmt.Sprintf("%d of %d circuits half-open", degraded, len(snapshot))).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("all %d circuits closed", len(snapshot))).WithDetails(details)
}

// BulkheadChecker reports Degraded when a bulkhead's queue is more than
// half full and Unhealthy when it is completely saturated (in-flight at
// max concurrency and queue at max depth), otherwise Healthy. A bulkhead
// with no queue (MaxQueueDepth 0) always reports Healthy.
type BulkheadChecker struct {
	name     string
	bulkhead *resilience.Bulkhead
}

// NewBulkheadChecker builds a checker named name over bulkhead.
func NewBulkheadChecker(name string, bulkhead *resilience.Bulkhead) *BulkheadChecker {
	return &BulkheadChecker{name: name, bulkhead: bulkhead}
}

// Name returns the configured checker name.
func (c *BulkheadChecker) Name() string {
	return c.name
}

// Check inspects the bulkhead's current occupancy.
func (c *BulkheadChecker) Check(_ context.Context) Result {
	m := c.bulkhead.Metrics()
	details := map[string]any{
		"in_flight":       m.InFlight,
		"queue_length":    m.QueueLength,
		"max_concurrency": m.MaxConcurrency,
		"max_queue_depth": m.MaxQueueDepth,
	}

	saturated := m.InFlight >= m.MaxConcurrency && m.QueueLength >= m.MaxQueueDepth && m.MaxQueueDepth > 0
	if saturated {
		return Unhealthy("bulkhead fully saturated", nil).WithDetails(details)
	}
	if m.MaxQueueDepth > 0 && m.QueueLength*2 > m.MaxQueueDepth {
		return Degraded("bulkhead queue more than half full").WithDetails(details)
	}
	return Healthy("bulkhead has capacity").WithDetails(details)
}
