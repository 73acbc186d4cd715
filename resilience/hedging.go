package resilience

import (
	"sync"
	"time"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

// HedgingConfig configures Hedging.
type HedgingConfig struct {
	// HedgeAfter is the delay between launching successive speculative
	// attempts.
	HedgeAfter time.Duration

	// MaxHedgedAttempts is the number of extra concurrent attempts beyond
	// the first; total attempts = MaxHedgedAttempts + 1.
	MaxHedgedAttempts int

	// ShouldHedge classifies an outcome as non-winning. Default: non-2xx
	// response or non-nil error.
	ShouldHedge func(resp httpmsg.Response, err error) bool

	// Hub receives HedgingEvent/HedgingOutcomeEvent. Defaults to
	// observe.DefaultHub.
	Hub *observe.Hub
}

// Hedging is a DelegatingHandler that dispatches up to
// MaxHedgedAttempts+1 concurrent attempts, staggered by HedgeAfter, and
// returns the first outcome that does not classify as ShouldHedge.
type Hedging struct {
	pipeline.DelegatingHandler
	config HedgingConfig
}

// NewHedging builds a Hedging handler.
func NewHedging(config HedgingConfig) *Hedging {
	if config.ShouldHedge == nil {
		config.ShouldHedge = defaultShouldHedge
	}
	if config.Hub == nil {
		config.Hub = observe.DefaultHub
	}
	return &Hedging{config: config}
}

func defaultShouldHedge(resp httpmsg.Response, err error) bool {
	if err != nil {
		return true
	}
	return !resp.IsSuccess()
}

type hedgeResult struct {
	attempt int
	resp    httpmsg.Response
	err     error
}

// Handle launches attempt 1 immediately and, absent a winner, one
// additional attempt every HedgeAfter up to the configured cap. Each
// attempt runs against a forked child context; once a winner is declared
// every other live child is cancelled. Uses time.AfterFunc rather than a
// time.Ticker for the launch schedule so a slow consumer of the result
// channel cannot introduce drift across a long-running hedge.
func (h *Hedging) Handle(ctx *httpmsg.Context) (httpmsg.Response, error) {
	totalAttempts := h.config.MaxHedgedAttempts + 1
	results := make(chan hedgeResult, totalAttempts)

	// mu guards children/launched/decided, which are written from the
	// Handle goroutine (attempt 1, and the decision below) and from every
	// time.AfterFunc goroutine that launches a later attempt. decided
	// gates launch: once set, a timer that fires after the winner was
	// already chosen must not fork (and thus leak) another child.
	var mu sync.Mutex
	children := make([]*httpmsg.Context, totalAttempts)
	launched := 0
	decided := false

	launch := func(attempt int) {
		mu.Lock()
		if decided {
			mu.Unlock()
			return
		}
		child := ctx.Fork()
		children[attempt-1] = child
		launched++
		mu.Unlock()

		go func() {
			resp, err := h.Next().Handle(child)
			select {
			case results <- hedgeResult{attempt: attempt, resp: resp, err: err}:
			case <-ctx.Token().Done():
			}
		}()
	}

	launch(1)

	var timers []*time.Timer
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for attempt := 2; attempt <= totalAttempts; attempt++ {
		attempt := attempt
		delay := time.Duration(attempt-1) * h.config.HedgeAfter
		timer := time.AfterFunc(delay, func() {
			h.config.Hub.Publish(observe.HedgingEvent{AttemptNumber: attempt, HedgeAfter: h.config.HedgeAfter})
			launch(attempt)
		})
		timers = append(timers, timer)
	}

	// decide stops every pending launch timer and marks decided so any
	// timer already executing concurrently aborts in launch rather than
	// forking a child that nothing will ever cancel, then returns a
	// snapshot of every child actually launched and how many there were.
	decide := func() ([]*httpmsg.Context, int) {
		mu.Lock()
		decided = true
		snapshot := append([]*httpmsg.Context(nil), children...)
		total := launched
		mu.Unlock()
		for _, t := range timers {
			t.Stop()
		}
		return snapshot, total
	}

	var last hedgeResult
	for received := 0; received < totalAttempts; received++ {
		select {
		case r := <-results:
			last = r
			if !h.config.ShouldHedge(r.resp, r.err) {
				snapshot, total := decide()
				h.cancelSiblings(snapshot, r.attempt)
				h.config.Hub.Publish(observe.HedgingOutcomeEvent{WinningAttempt: r.attempt, TotalAttempts: total})
				if r.err != nil {
					return httpmsg.Response{}, r.err
				}
				return r.resp, nil
			}
		case <-ctx.Token().Done():
			decide()
			return httpmsg.Response{}, ctx.ThrowIfCancelled()
		}
	}

	decide()
	h.config.Hub.Publish(observe.HedgingOutcomeEvent{WinningAttempt: 0, TotalAttempts: totalAttempts})
	if last.err != nil {
		return httpmsg.Response{}, last.err
	}
	return last.resp, nil
}

// cancelSiblings cancels every launched child context other than the
// winner's. A child that was never launched (its slot in children is nil
// because its AfterFunc hadn't fired, or fired after decide() had already
// run and aborted) has nothing to cancel.
func (h *Hedging) cancelSiblings(children []*httpmsg.Context, winner int) {
	for i, child := range children {
		if i+1 == winner || child == nil {
			continue
		}
		child.Token().Cancel("hedging: a sibling attempt won")
	}
}
