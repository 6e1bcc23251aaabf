package strand

import (
	"strings"
	"sync"
	"time"
)

// Note is one remembered fact.
type Note struct {
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MemoryStore holds notes the model asked to remember across
// iterations. It is exposed to sandboxed code as remember/recall and is
// fed by the memory_store tag. Notes are append-only within a session.
type MemoryStore struct {
	mu    sync.RWMutex
	notes []Note
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append records a note.
func (m *MemoryStore) Append(content string, tags ...string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notes = append(m.notes, Note{
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now(),
	})
}

// Notes returns all notes in insertion order.
func (m *MemoryStore) Notes() []Note {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Note, len(m.notes))
	copy(out, m.notes)
	return out
}

// Contents returns the note texts in insertion order.
func (m *MemoryStore) Contents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.notes))
	for i, note := range m.notes {
		out[i] = note.Content
	}
	return out
}

// Len returns the number of stored notes.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notes)
}
