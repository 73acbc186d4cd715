package pipeline

import "errors"

// ErrLastHandlerNotTerminal is returned by NewList when the last handler in
// a list-style build is a DelegatingHandler (it needs something to
// delegate to) rather than a plain, non-delegating Handler.
var ErrLastHandlerNotTerminal = errors.New("pipeline: last handler in a list build must be non-delegating (act as terminal)")

// delegating is implemented by any handler the Builder must wire a "next"
// into — every policy handler embeds *DelegatingHandler, which satisfies
// this automatically.
type delegating interface {
	SetNext(next Handler)
}

// Builder links an ordered list of delegating handlers, outermost-first,
// inner-out, ending at a terminal handler, and returns the outermost
// handler.
type Builder struct {
	handlers []delegatingHandlerEntry
	terminal Handler
}

type delegatingHandlerEntry struct {
	handler Handler
	delegate delegating
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Use appends a delegating handler to the chain (outermost handlers should
// be added first).
func (b *Builder) Use(h Handler) *Builder {
	d, _ := h.(delegating)
	b.handlers = append(b.handlers, delegatingHandlerEntry{handler: h, delegate: d})
	return b
}

// Terminal sets the terminal override. If never called, Build requires the
// last entry added via Use to itself be non-delegating (see NewList).
func (b *Builder) Terminal(h Handler) *Builder {
	b.terminal = h
	return b
}

// Build links the handlers inner-out and returns the outermost one.
func (b *Builder) Build() (Handler, error) {
	if b.terminal == nil && len(b.handlers) == 0 {
		return nil, errors.New("pipeline: no handlers and no terminal configured")
	}

	var inner Handler = b.terminal
	handlers := b.handlers

	if inner == nil {
		// No explicit terminal: the last handler in the list must be
		// non-delegating and act as the terminal itself.
		last := handlers[len(handlers)-1]
		if last.delegate != nil {
			return nil, ErrLastHandlerNotTerminal
		}
		inner = last.handler
		handlers = handlers[:len(handlers)-1]
	}

	for i := len(handlers) - 1; i >= 0; i-- {
		entry := handlers[i]
		if entry.delegate == nil {
			return nil, errors.New("pipeline: non-terminal, non-delegating handler in the middle of the chain")
		}
		entry.delegate.SetNext(inner)
		inner = entry.handler
	}

	return inner, nil
}

// NewList is convenience sugar over Builder for the common case: pass every
// handler outermost-first, and let the last entry act as the terminal if it
// is non-delegating. Fails with ErrLastHandlerNotTerminal if the last entry
// is delegating and no terminal was supplied.
func NewList(handlers ...Handler) (Handler, error) {
	b := NewBuilder()
	for _, h := range handlers {
		b.Use(h)
	}
	return b.Build()
}
