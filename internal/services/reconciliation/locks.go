package reconciliation

import "sync"

// referenceLocks serializes reconciliation per transaction reference. Two
// callbacks for the same reference cannot both observe pending and both
// attempt a transition; entries are refcounted so the table stays bounded.
type referenceLocks struct {
	mu    sync.Mutex
	locks map[string]*referenceLock
}

type referenceLock struct {
	mu   sync.Mutex
	refs int
}

func newReferenceLocks() *referenceLocks {
	return &referenceLocks{
		locks: make(map[string]*referenceLock),
	}
}

// Acquire blocks until the caller holds the lock for reference. The returned
// function releases it.
func (l *referenceLocks) Acquire(reference string) func() {
	l.mu.Lock()
	entry, ok := l.locks[reference]
	if !ok {
		entry = &referenceLock{}
		l.locks[reference] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, reference)
		}
		l.mu.Unlock()
	}
}
