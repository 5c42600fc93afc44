package lifecycle

import (
	"sync"
	"sync/atomic"
)

// List is an append-only copy-on-write slice. Snapshot never blocks and the
// returned slice is never mutated afterwards; Append copies under a mutex.
type List[T any] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

// Append adds values in order.
func (l *List[T]) Append(values ...T) {
	if len(values) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var cur []T
	if p := l.items.Load(); p != nil {
		cur = *p
	}
	next := make([]T, 0, len(cur)+len(values))
	next = append(next, cur...)
	next = append(next, values...)
	l.items.Store(&next)
}

// Snapshot returns the current contents. Callers must not modify it.
func (l *List[T]) Snapshot() []T {
	if p := l.items.Load(); p != nil {
		return *p
	}
	return nil
}

// Len returns the current length.
func (l *List[T]) Len() int {
	return len(l.Snapshot())
}
