package slash

import (
	"sync"
	"time"
)

// ExecutedEvent is published after a handler and its hooks ran without error
type ExecutedEvent struct {
	Context  *Context
	Duration time.Duration
}

// ErroredEvent is published when any dispatch step failed.
// Context is nil when the failure happened before it was built.
type ErroredEvent struct {
	Context  *Context
	Command  string
	Err      error
	Duration time.Duration
}

// SyncEvent is published after each scope registration attempt
type SyncEvent struct {
	Scope    Scope
	Commands int
	Unbound  []string
	Err      error
	Duration time.Duration
}

// hub fans one event stream out to its subscribers, in subscription order
type hub[T any] struct {
	mu       sync.RWMutex
	next     int
	handlers []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

func (h *hub[T]) subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	h.handlers = append(h.handlers, subscriber[T]{id: id, fn: fn})
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.handlers {
			if s.id == id {
				h.handlers = append(h.handlers[:i:i], h.handlers[i+1:]...)
				return
			}
		}
	}
}

func (h *hub[T]) publish(evt T) {
	h.mu.RLock()
	handlers := make([]subscriber[T], len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	for _, s := range handlers {
		s.fn(evt)
	}
}
