package resilience

import (
	"sync"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a named circuit.
type CircuitBreakerConfig struct {
	// CircuitName uniquely identifies the circuit within the process-wide
	// Registry. Required.
	CircuitName string

	// FailureThreshold is the number of consecutive classified failures
	// that trip Closed -> Open.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successful probes in
	// HalfOpen required to close the circuit. Default: 1.
	SuccessThreshold int

	// BreakDuration is how long the circuit stays Open before allowing a
	// single HalfOpen probe.
	BreakDuration time.Duration

	// ShouldCount classifies an outcome as a failure. Default: non-nil
	// error or a 5xx response.
	ShouldCount func(resp httpmsg.Response, err error) bool

	// Hub receives CircuitOpenEvent/CircuitCloseEvent. Defaults to
	// observe.DefaultHub.
	Hub *observe.Hub

	// OnStateChange is invoked synchronously, in addition to the Hub event,
	// whenever a call's outcome moves the circuit into Open or Closed, for
	// callers that want a bare callback. The Open -> HalfOpen transition
	// does not invoke it.
	OnStateChange func(from, to State)
}

// CircuitBreakerState is the per-circuit mutable record shared by every
// handler that names the same circuit, reached only through Registry.
type CircuitBreakerState struct {
	config CircuitBreakerConfig

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	consecutiveSuccesses int
	openedAt            time.Time
	retryAfter          time.Time
	halfOpenInFlight    bool
}

func newCircuitBreakerState(config CircuitBreakerConfig) *CircuitBreakerState {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.BreakDuration <= 0 {
		config.BreakDuration = 30 * time.Second
	}
	if config.ShouldCount == nil {
		config.ShouldCount = defaultShouldCount
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &CircuitBreakerState{config: config, state: StateClosed}
}

func defaultShouldCount(resp httpmsg.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.IsServerError()
}

// State returns the current state, resolving an expired Open window into
// HalfOpen first.
func (s *CircuitBreakerState) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentStateLocked()
}

// currentStateLocked must be called with s.mu held.
func (s *CircuitBreakerState) currentStateLocked() State {
	if s.state == StateOpen && !time.Now().Before(s.retryAfter) {
		s.state = StateHalfOpen
		s.halfOpenInFlight = false
	}
	return s.state
}

// beforeCall enforces the admission rule: Closed always allows, Open always
// rejects, HalfOpen allows exactly one in-flight probe.
func (s *CircuitBreakerState) beforeCall() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.currentStateLocked() {
	case StateOpen:
		return &CircuitOpenError{Name: s.config.CircuitName, RetryAfter: s.retryAfter}
	case StateHalfOpen:
		if s.halfOpenInFlight {
			return &CircuitOpenError{Name: s.config.CircuitName, RetryAfter: s.retryAfter}
		}
		s.halfOpenInFlight = true
	}
	return nil
}

func (s *CircuitBreakerState) afterCall(resp httpmsg.Response, err error) {
	s.mu.Lock()
	isFailure := s.config.ShouldCount(resp, err)
	from := s.state
	var toOpen, toClose bool

	switch s.state {
	case StateClosed:
		if isFailure {
			s.consecutiveFailures++
			if s.consecutiveFailures >= s.config.FailureThreshold {
				s.openLocked()
				toOpen = true
			}
		} else {
			s.consecutiveFailures = 0
		}

	case StateHalfOpen:
		s.halfOpenInFlight = false
		if isFailure {
			s.openLocked()
			toOpen = true
		} else {
			s.consecutiveSuccesses++
			if s.consecutiveSuccesses >= s.config.SuccessThreshold {
				s.state = StateClosed
				s.consecutiveFailures = 0
				s.consecutiveSuccesses = 0
				toClose = true
			}
		}
	}
	retryAfter := s.retryAfter
	onChange := s.config.OnStateChange
	hub := s.config.Hub
	name := s.config.CircuitName
	s.mu.Unlock()

	if toOpen {
		if onChange != nil {
			onChange(from, StateOpen)
		}
		hub.Publish(observe.CircuitOpenEvent{CircuitName: name, From: from.String(), RetryAfter: retryAfter})
	}
	if toClose {
		if onChange != nil {
			onChange(from, StateClosed)
		}
		hub.Publish(observe.CircuitCloseEvent{CircuitName: name})
	}
}

// openLocked transitions to Open; caller holds s.mu.
func (s *CircuitBreakerState) openLocked() {
	s.state = StateOpen
	s.openedAt = time.Now()
	s.retryAfter = s.openedAt.Add(s.config.BreakDuration)
	s.halfOpenInFlight = false
}

// Reset forces the circuit back to Closed, clearing all counters.
func (s *CircuitBreakerState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
	s.consecutiveFailures = 0
	s.consecutiveSuccesses = 0
	s.halfOpenInFlight = false
}

// Metrics is a point-in-time snapshot of one circuit's counters.
type Metrics struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	OpenedAt             time.Time
	RetryAfter           time.Time
}

func (s *CircuitBreakerState) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Metrics{
		State:                s.currentStateLocked(),
		ConsecutiveFailures:  s.consecutiveFailures,
		ConsecutiveSuccesses: s.consecutiveSuccesses,
		OpenedAt:             s.openedAt,
		RetryAfter:           s.retryAfter,
	}
}

// CircuitBreaker is the DelegatingHandler installed into a pipeline; its
// behavior is delegated to the shared *CircuitBreakerState looked up (or
// created) from a Registry at construction time.
type CircuitBreaker struct {
	pipeline.DelegatingHandler
	state *CircuitBreakerState
}

// NewCircuitBreaker resolves config.CircuitName against registry (creating
// the state on first reference) and returns a handler bound to it.
func NewCircuitBreaker(registry *Registry, config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{state: registry.GetOrCreate(config)}
}

// Handle rejects the call while the circuit is Open or a probe is already
// in flight in HalfOpen; otherwise it calls through and records the
// outcome.
func (c *CircuitBreaker) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	if err := c.state.beforeCall(); err != nil {
		return httpmsg.Response{}, err
	}

	resp, err := c.Next().Handle(ctx)
	c.state.afterCall(resp, err)
	if err != nil {
		return httpmsg.Response{}, err
	}
	return resp, nil
}

// State returns the current state of the bound circuit.
func (c *CircuitBreaker) State() State { return c.state.State() }
