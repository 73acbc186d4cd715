package resilience

import (
	"errors"
	"testing"

	"github.com/jonwraymond/httpresil/httpmsg"
	"github.com/jonwraymond/httpresil/observe"
	"github.com/jonwraymond/httpresil/pipeline"
)

func TestFallback_PassesThroughSuccess(t *testing.T) {
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return okResponse(), nil
	})
	fb := NewFallback(FallbackConfig{
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			t.Fatal("Action should not be called on success")
			return httpmsg.Response{}, nil
		},
	})
	h := chain(t, fb, inner)

	resp, err := h.Handle(newCtx())
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.StatusCode() != 200 {
		t.Errorf("StatusCode() = %d, want 200", resp.StatusCode())
	}
}

func TestFallback_InvokesActionOnError(t *testing.T) {
	transportErr := errors.New("boom")
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.Response{}, transportErr
	})
	fb := NewFallback(FallbackConfig{
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			if !errors.Is(err, transportErr) {
				t.Errorf("Action received err = %v, want %v", err, transportErr)
			}
			return httpmsg.NewBufferedResponse(200, nil, []byte("cached"), 0), nil
		},
	})
	h := chain(t, fb, inner)

	resp, err := h.Handle(newCtx())
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.StatusCode() != 200 {
		t.Errorf("StatusCode() = %d, want 200", resp.StatusCode())
	}
}

func TestFallback_InvokesActionOnNon2xxResponse(t *testing.T) {
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(500, nil, nil, 0), nil
	})
	called := false
	fb := NewFallback(FallbackConfig{
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			called = true
			return httpmsg.NewBufferedResponse(200, nil, []byte("default"), 0), nil
		},
	})
	h := chain(t, fb, inner)

	_, _ = h.Handle(newCtx())
	if !called {
		t.Error("Action was not invoked for a 500 response")
	}
}

func TestFallback_RespectsExplicitStatusCodes(t *testing.T) {
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.NewBufferedResponse(404, nil, nil, 0), nil
	})
	called := false
	fb := NewFallback(FallbackConfig{
		StatusCodes: map[int]bool{503: true},
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			called = true
			return httpmsg.NewBufferedResponse(200, nil, nil, 0), nil
		},
	})
	h := chain(t, fb, inner)

	resp, _ := h.Handle(newCtx())
	if called {
		t.Error("Action was invoked for a status not in StatusCodes")
	}
	if resp.StatusCode() != 404 {
		t.Errorf("StatusCode() = %d, want 404 passed through unchanged", resp.StatusCode())
	}
}

func TestFallback_PropagatesActionError(t *testing.T) {
	actionErr := errors.New("fallback source also down")
	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.Response{}, errors.New("primary down")
	})
	fb := NewFallback(FallbackConfig{
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			return httpmsg.Response{}, actionErr
		},
	})
	h := chain(t, fb, inner)

	_, err := h.Handle(newCtx())
	if !errors.Is(err, actionErr) {
		t.Errorf("error = %v, want %v", err, actionErr)
	}
}

func TestFallback_EmitsEvent(t *testing.T) {
	hub := observe.NewHub(nil)
	var events []observe.FallbackEvent
	observe.Subscribe(hub, func(e observe.FallbackEvent) { events = append(events, e) })

	inner := pipeline.HandlerFunc(func(ctx *httpmsg.Context) (httpmsg.Response, error) {
		return httpmsg.Response{}, errors.New("boom")
	})
	fb := NewFallback(FallbackConfig{
		Hub: hub,
		Action: func(ctx *httpmsg.Context, err error) (httpmsg.Response, error) {
			return okResponse(), nil
		},
	})
	h := chain(t, fb, inner)

	_, _ = h.Handle(newCtx())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
}
