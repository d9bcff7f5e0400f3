package process

import (
	"sort"
	"sync"

	"startup-hunter-be/pkg/store"
)

// Entry is the registry record of one live preview server.
type Entry struct {
	SessionID string
	store.ServerHandle
}

// Registry maps a session to its running server. Implementations must be
// safe for concurrent use. Entries never expire on their own.
type Registry interface {
	Put(entry Entry)
	Get(sessionID string) (Entry, bool)
	Delete(sessionID string)
	List() []Entry
}

type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]Entry)}
}

func (r *MemoryRegistry) Put(entry Entry) {
	r.mu.Lock()
	r.entries[entry.SessionID] = entry
	r.mu.Unlock()
}

func (r *MemoryRegistry) Get(sessionID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[sessionID]
	return e, ok
}

func (r *MemoryRegistry) Delete(sessionID string) {
	r.mu.Lock()
	delete(r.entries, sessionID)
	r.mu.Unlock()
}

// List returns a snapshot ordered by session id.
func (r *MemoryRegistry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}
