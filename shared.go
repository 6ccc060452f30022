package geode

import "sync"

// SharedWorld layers cross-goroutine exclusion over a World. Borrow guards
// obtained inside Do must be released before Do returns.
type SharedWorld struct {
	w  *World
	mu sync.Mutex
}

// NewSharedWorld wraps w. The caller must stop using w directly.
func NewSharedWorld(w *World) *SharedWorld {
	return &SharedWorld{w: w}
}

// Do runs fn with exclusive access to the world.
func (s *SharedWorld) Do(fn func(w *World) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.w)
}
