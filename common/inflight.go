package common

import (
	"context"
	"sync"
)

// OpSlot holds at most one in-flight cancellable operation. Starting a
// new operation cancels the previous one under the same lock, so two
// operations can never run concurrently against the same slot.
type OpSlot struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Begin cancels any operation currently occupying the slot and installs
// a fresh context derived from parent. The caller must call the
// returned CancelFunc when the operation settles.
func (s *OpSlot) Begin(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	return ctx, func() {
		cancel()
		s.mu.Lock()
		// Vacate the slot only if no newer operation replaced us.
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}
}

// Cancel aborts the occupying operation, if any.
func (s *OpSlot) Cancel() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
}

// Active reports whether an operation currently occupies the slot.
func (s *OpSlot) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}
