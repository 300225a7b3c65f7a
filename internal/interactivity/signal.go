package interactivity

import (
	"context"
	"sync"
)

// Signal is a one-shot completion signal. The first Settle wins.
type Signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewSignal returns an unsettled signal
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Settle completes the signal with err. It reports whether this call settled it.
func (s *Signal) Settle(err error) bool {
	settled := false
	s.once.Do(func() {
		s.err = err
		close(s.done)
		settled = true
	})
	return settled
}

// Done is closed once the signal settles
func (s *Signal) Done() <-chan struct{} { return s.done }

// Settled reports whether the signal has settled
func (s *Signal) Settled() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Err returns the settlement error; nil before settling
func (s *Signal) Err() error {
	if !s.Settled() {
		return nil
	}
	return s.err
}

// Wait blocks until the signal settles or ctx ends
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
