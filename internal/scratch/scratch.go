// Package scratch provides the persistent scratch store: a synchronous
// key to blob store surviving process restarts. It never fails observably;
// backend errors are logged and reported as "no data".
package scratch

import "sync"

// Store is the scratch store contract. The guest cart key is written by
// the cart store only; the session key by the session controller only.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, blob []byte)
	Remove(key string)
}

// MemoryStore keeps blobs in process memory. It backs tests and acts as
// the fallback when no durable backend is configured.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Get returns the blob stored under key.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true
}

// Set stores the blob under key.
func (s *MemoryStore) Set(key string, blob []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[key] = stored
}

// Remove deletes the blob stored under key.
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
}
