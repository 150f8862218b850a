// Package keyedmutex provides a mutex that can be locked per key, so
// that unrelated keys don't contend with each other.
package keyedmutex

import "sync"

// Mutex hands out a *sync.Mutex per key, lazily creating one the first
// time a key is locked and never removing it afterwards: object ids are
// a bounded, content-addressed key space for the lifetime of a process,
// so the small amount of retained memory isn't worth the complexity of
// reference counting.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New returns a ready to use Mutex
func New() *Mutex {
	return &Mutex{locks: map[string]*sync.Mutex{}}
}

// Lock locks the mutex associated with key, blocking until it's available
func (m *Mutex) Lock(key []byte) {
	m.forKey(key).Lock()
}

// Unlock unlocks the mutex associated with key
func (m *Mutex) Unlock(key []byte) {
	m.forKey(key).Unlock()
}

func (m *Mutex) forKey(key []byte) *sync.Mutex {
	k := string(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[k]
	if !ok {
		l = &sync.Mutex{}
		m.locks[k] = l
	}
	return l
}
