package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps slot values in process memory.
// Params: map guarded by RW mutex.
// Returns: backend without persistence across restarts (tests, ephemeral hosts).
type MemoryBackend struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryBackend creates in-memory backend.
// Params: none.
// Returns: empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{values: make(map[string]string)}
}

// Get returns stored value.
// Params: key.
// Returns: value or ErrNotFound.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Put writes value unconditionally.
// Params: key and value.
// Returns: nil.
func (b *MemoryBackend) Put(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = value
	return nil
}

// Delete removes key.
// Params: key.
// Returns: nil.
func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
	return nil
}

// Close releases memory backend resources.
// Params: none.
// Returns: nil.
func (b *MemoryBackend) Close() error {
	return nil
}
