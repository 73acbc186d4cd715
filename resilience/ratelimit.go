package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/pipeline"
)

// RateLimiterConfig configures RateLimiter, a client-side self-throttle.
// This is a supplemental policy, not part of the core pipeline composed
// from a configuration document — server-side rate limiting is out of
// scope, but a client limiting its own outbound rate is a different
// concern, so it is kept as an optional stage wired only through
// ClientBuilder.RateLimiter/AddHandler.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second, sustained.
	Rate float64

	// Burst is the maximum token bucket size.
	Burst int

	// WaitOnLimit waits for a token instead of rejecting immediately.
	WaitOnLimit bool

	// MaxWait caps how long Handle waits for a token when WaitOnLimit is
	// set.
	MaxWait time.Duration
}

// RateLimiter is a DelegatingHandler implementing a token bucket.
type RateLimiter struct {
	pipeline.DelegatingHandler
	config RateLimiterConfig

	mu          sync.Mutex
	tokens      float64
	lastRefresh time.Time
}

// NewRateLimiter builds a RateLimiter handler.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 100
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}
	return &RateLimiter{
		config:      config,
		tokens:      float64(config.Burst),
		lastRefresh: time.Now(),
	}
}

// Allow reports whether a single token is available, consuming it if so.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

func (rl *RateLimiter) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefresh)
	rl.lastRefresh = now
	rl.tokens += elapsed.Seconds() * rl.config.Rate
	if rl.tokens > float64(rl.config.Burst) {
		rl.tokens = float64(rl.config.Burst)
	}
}

// ErrRateLimited is returned when no token is available and WaitOnLimit is
// false, or the wait budget elapses first.
var ErrRateLimited = errors.New("resilience: rate limit exceeded")

// Handle consumes a token before calling the inner handler, waiting up to
// config.MaxWait if config.WaitOnLimit is set.
func (rl *RateLimiter) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	if rl.config.WaitOnLimit {
		if err := rl.wait(ctx); err != nil {
			return httpmsg.Response{}, err
		}
	} else if !rl.Allow() {
		return httpmsg.Response{}, ErrRateLimited
	}
	return rl.Next().Handle(ctx)
}

func (rl *RateLimiter) wait(ctx *httpmsg.Context) error {
	if rl.Allow() {
		return nil
	}

	timer := time.NewTimer(rl.config.MaxWait)
	defer timer.Stop()

	poll := time.NewTicker(5 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Token().Done():
			return ctx.ThrowIfCancelled()
		case <-timer.C:
			return ErrRateLimited
		case <-poll.C:
			if rl.Allow() {
				return nil
			}
		}
	}
}

// Tokens returns the current number of available tokens.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Reset restores the bucket to full capacity.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = float64(rl.config.Burst)
	rl.lastRefresh = time.Now()
}
