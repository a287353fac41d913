package pipeline

import (
	"context"
	"sync"
)

// BatchScope owns the cancellation of one batch. Starting a new batch aborts
// any batch still running under the previous scope before the new context is
// created, so exactly one batch is ever active per pipeline instance.
//
// Cancellation is cooperative: the executor checks the context at every stage
// boundary and immediately after long-running I/O, and passes it into every
// network call. A cancelled context is observed as context.Canceled.
type BatchScope struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Start supersedes any active scope and returns the context for a new batch
// along with a release function the batch must call once it settles.
func (s *BatchScope) Start(parent context.Context) (context.Context, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.gen++
	gen := s.gen

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		cancel()
		if s.gen == gen {
			s.cancel = nil
		}
	}
	return ctx, release
}

// Cancel aborts the active batch. It is idempotent; cancelling a settled
// scope is a no-op.
func (s *BatchScope) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
