// Package locks provides a per-key mutex used to serialize balance and
// day-bank mutations for a single user across concurrent requests.
package locks

import "sync"

// Keyed hands out one mutex per key. Mutexes are never evicted; the key
// space is bounded by the active user population.
type Keyed struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// NewKeyed creates an empty keyed mutex set.
func NewKeyed() *Keyed {
	return &Keyed{m: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
