package config

// Document is the top-level JSON shape consumed by [Load]: a single
// "Resilience" section whose recognized subsections are exactly those
// named on [PipelineConfig]. Unrecognized top-level keys are ignored
// (forward-compatible with a host document that carries unrelated
// sections alongside "Resilience").
type Document struct {
	Resilience PipelineConfig `json:"Resilience"`
}

// PipelineConfig is the parsed, not-yet-bound form of a configuration
// document. Each field is a pointer so [Bind] can tell "subsection absent"
// (nil) apart from "subsection present with zero values": Bind skips a
// missing subsection entirely rather than defaulting it into the pipeline.
type PipelineConfig struct {
	Retry             *RetryConfig             `json:"Retry,omitempty"`
	Timeout           *TimeoutConfig           `json:"Timeout,omitempty"`
	CircuitBreaker    *CircuitBreakerConfig    `json:"CircuitBreaker,omitempty"`
	BulkheadIsolation *BulkheadIsolationConfig `json:"BulkheadIsolation,omitempty"`
	Hedging           *HedgingConfig           `json:"Hedging,omitempty"`
	Fallback          *FallbackConfig          `json:"Fallback,omitempty"`
}

// RetryConfig is the document shape of the "Retry" subsection.
type RetryConfig struct {
	MaxRetries int            `json:"MaxRetries"`
	Backoff    BackoffConfig  `json:"Backoff"`
}

// BackoffConfig is the document shape of "Retry.Backoff".
type BackoffConfig struct {
	// Type is one of "constant", "linear", "exponential".
	Type      string `json:"Type"`
	BaseMs    int    `json:"BaseMs"`
	UseJitter bool   `json:"UseJitter"`
}

// TimeoutConfig is the document shape of the "Timeout" subsection.
type TimeoutConfig struct {
	Seconds float64 `json:"Seconds"`
}

// CircuitBreakerConfig is the document shape of the "CircuitBreaker"
// subsection.
type CircuitBreakerConfig struct {
	CircuitName      string `json:"CircuitName"`
	FailureThreshold int    `json:"FailureThreshold"`
	BreakSeconds     float64 `json:"BreakSeconds"`
}

// BulkheadIsolationConfig is the document shape of the
// "BulkheadIsolation" subsection. QueueTimeoutMs is optional; zero means
// Bind applies a 5-second queue timeout.
type BulkheadIsolationConfig struct {
	MaxConcurrentRequests int `json:"MaxConcurrentRequests"`
	MaxQueueSize          int `json:"MaxQueueSize"`
	QueueTimeoutMs        int `json:"QueueTimeoutMs,omitempty"`
}

// HedgingConfig is the document shape of the "Hedging" subsection.
type HedgingConfig struct {
	HedgeAfterMs      int `json:"HedgeAfterMs"`
	MaxHedgedAttempts int `json:"MaxHedgedAttempts"`
}

// FallbackConfig is the document shape of the "Fallback" subsection.
type FallbackConfig struct {
	StatusCodes []int `json:"StatusCodes"`
}
