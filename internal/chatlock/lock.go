// Package chatlock serializes request handling per chat id. The store's
// full-sequence overwrite is last-writer-wins, so the whole
// load-mutate-save cycle must run under the chat's lock or concurrent
// triggers against one id silently drop each other's writes.
package chatlock

import "sync"

// Registry hands out one mutex per chat id. Entries live for the process
// lifetime; chats number in the hundreds for this service.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for id and returns its unlock func.
func (r *Registry) Lock(id string) func() {
	r.mu.Lock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
