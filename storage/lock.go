package storage

import (
	"path/filepath"
	"sync"
)

// PathLocker serializes operations per absolute file path. It is strictly
// in-process: a single server instance owns the data directory, so no
// cross-process locking is attempted.
type PathLocker struct {
	mu    sync.Mutex
	locks map[string]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func NewPathLocker() *PathLocker {
	return &PathLocker{locks: make(map[string]*pathLock)}
}

// WithLock runs fn while holding the mutex for path. Operations on the same
// path never overlap; operations on different paths run independently. The
// registry entry is retired once the last holder releases it, so the map does
// not grow without bound.
func (l *PathLocker) WithLock(path string, fn func() error) error {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &pathLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}()

	return fn()
}
