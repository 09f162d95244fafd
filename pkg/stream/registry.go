package stream

import (
	"sort"
	"sync"
)

// Registration is one in-flight stream keyed by conversation.
type Registration struct {
	ID     string
	Token  uint64
	cancel func()
}

// Registry tracks at most one in-flight stream per conversation.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Registration
	next    uint64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Registration)}
}

// Register records cancel as the live stream for id. A stream already
// registered for id is cancelled. The returned token identifies this
// registration for Release.
func (r *Registry) Register(id string, cancel func()) uint64 {
	r.mu.Lock()
	r.next++
	reg := &Registration{ID: id, Token: r.next, cancel: cancel}
	prev := r.entries[id]
	r.entries[id] = reg
	r.mu.Unlock()

	if prev != nil && prev.cancel != nil {
		prev.cancel()
	}
	return reg.Token
}

// Release forgets the registration if it is still the current one for id.
func (r *Registry) Release(id string, token uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg, ok := r.entries[id]; ok && reg.Token == token {
		delete(r.entries, id)
	}
}

// Cancel stops and forgets the stream for id. It reports whether one was live.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	reg, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok && reg.cancel != nil {
		reg.cancel()
	}
	return ok
}

// CancelAll stops every registered stream.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Registration)
	r.mu.Unlock()

	for _, reg := range entries {
		if reg.cancel != nil {
			reg.cancel()
		}
	}
}

// Get returns the live registration for id.
func (r *Registry) Get(id string) (*Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[id]
	return reg, ok
}

// List returns the ids with a live stream, sorted.
func (r *Registry) List() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
