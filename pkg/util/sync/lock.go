package sync

import (
	"sync"
)

// NamedLockMap hands out one lock per name, creating it on first use.
// Stored repositories use their path as the name so that concurrent writers
// of the same repository are serialized while different repositories proceed
// in parallel.
type NamedLockMap interface {
	LockByName(name string) sync.Locker
	// Len returns how many names have a lock allocated.
	Len() int
}

func NewNamedLockMap() NamedLockMap {
	return &namedLockMap{
		locks:   make(map[string]*sync.Mutex),
		locksMu: &sync.Mutex{},
	}
}

type namedLockMap struct {
	// locks maps names to their individual locks
	locks map[string]*sync.Mutex
	// locksMu guards reads and writes of the locks map
	locksMu *sync.Mutex
}

func (l *namedLockMap) LockByName(name string) sync.Locker {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()

	if mu, ok := l.locks[name]; ok {
		return mu
	}
	l.locks[name] = &sync.Mutex{}
	return l.locks[name]
}

func (l *namedLockMap) Len() int {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	return len(l.locks)
}
