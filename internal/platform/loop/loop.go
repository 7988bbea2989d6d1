// Package loop serializes work that would otherwise race between the host's
// calls and timer callbacks. All engine state is mutated inside Do.
package loop

import "sync"

type Loop interface {
	Do(fn func())
}

// Inline runs fn on the calling goroutine. Use it when the caller already
// guarantees a single goroutine.
type Inline struct{}

func (Inline) Do(fn func()) { fn() }

// Serial runs fn while holding a mutex. Do is not reentrant.
type Serial struct {
	mu sync.Mutex
}

func (s *Serial) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
