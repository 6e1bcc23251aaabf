package vault

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no entry exists for an id.
var ErrNotFound = errors.New("vault entry not found")

// Backend is the persistence layer behind a Store. Implementations may be
// in-memory, on disk, or remote.
type Backend interface {
	// Get retrieves an entry by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Entry, error)

	// Put creates or replaces an entry.
	Put(ctx context.Context, entry *Entry) error

	// Delete removes an entry by id. Deleting a missing entry is a no-op.
	Delete(ctx context.Context, id string) error

	// List returns all entries. Order is not specified.
	List(ctx context.Context) ([]*Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}

// MemoryBackend is an in-memory Backend suitable for tests and
// single-process use. All operations are safe for concurrent use.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]*Entry{}}
}

func (b *MemoryBackend) Get(ctx context.Context, id string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entry, ok := b.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (b *MemoryBackend) Put(ctx context.Context, entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	copied := *entry
	b.entries[entry.ID] = &copied
	return nil
}

func (b *MemoryBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, id)
	return nil
}

func (b *MemoryBackend) List(ctx context.Context) ([]*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	entries := make([]*Entry, 0, len(b.entries))
	for _, entry := range b.entries {
		copied := *entry
		entries = append(entries, &copied)
	}
	return entries, nil
}

func (b *MemoryBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = map[string]*Entry{}
	return nil
}
