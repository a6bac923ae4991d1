// Package locker serializes access to local repository checkouts. Git
// operations on the same checkout must not interleave, so every caller
// acquires the path's mutex before touching it.
package locker

import "sync"

// Locker hands out one mutex per checkout path.
type Locker interface {
	// Acquire returns the mutex guarding path, creating it on first use.
	// Mutexes are never evicted; the set of checkouts is small and
	// stable for the life of the process.
	Acquire(path string) *sync.Mutex
}

// Compile-time interface check.
var _ Locker = (*locker)(nil)

type locker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty lock registry.
func New() Locker {
	return &locker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *locker) Acquire(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.locks[path]; ok {
		return m
	}

	m := &sync.Mutex{}
	l.locks[path] = m

	return m
}
