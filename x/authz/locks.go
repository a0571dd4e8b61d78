package authz

import (
	"sync"
)

// lockRegistry hands out one mutex per key. Locks are never garbage
// collected; the key space is bounded by the number of transactions a
// deployment sees between restarts, which is acceptable for the in-memory
// ledgers this package already keeps.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the key's mutex and returns the unlock function.
func (r *lockRegistry) acquire(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = new(sync.Mutex)
		r.locks[key] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// inFlight marks transactions currently mid-broadcast. The transaction lock
// is released during the broadcast itself, so other operations consult this
// set to keep away from a record whose outcome is still undecided.
type inFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{ids: make(map[string]struct{})}
}

// mark claims the id. Returns false when it is already claimed.
func (f *inFlight) mark(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return false
	}
	f.ids[id] = struct{}{}
	return true
}

func (f *inFlight) clear(id string) {
	f.mu.Lock()
	delete(f.ids, id)
	f.mu.Unlock()
}

func (f *inFlight) active(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[id]
	return ok
}
