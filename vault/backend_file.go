package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileBackend stores vault entries as individual JSON files on disk.
//
// Each entry is stored as a separate file named {id}.json in the
// configured base directory. This implementation is suitable for CLI
// applications and single-user deployments where vault contents need to
// persist across process restarts.
//
// All operations are thread-safe using a read-write mutex.
type FileBackend struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileBackend creates a file-based vault backend rooted at baseDir.
// A leading "~/" expands to the user's home directory, and the directory
// is created if it does not exist.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if strings.HasPrefix(baseDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, baseDir[2:])
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &FileBackend{baseDir: baseDir}, nil
}

// entryPath returns the file path for an entry id, rejecting ids that
// would escape the base directory.
func (b *FileBackend) entryPath(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid vault entry id: %q", id)
	}
	return filepath.Join(b.baseDir, id+".json"), nil
}

func (b *FileBackend) Get(ctx context.Context, id string) (*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	path, err := b.entryPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (b *FileBackend) Put(ctx context.Context, entry *Entry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.entryPath(entry.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	// Write to a temp file then rename so readers never observe a
	// half-written entry.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (b *FileBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.entryPath(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *FileBackend) List(ctx context.Context) ([]*Entry, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	dirEntries, err := os.ReadDir(b.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []*Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(b.baseDir, de.Name()))
		if err != nil {
			continue // Skip files we can't read
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue // Skip malformed files
		}
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (b *FileBackend) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	dirEntries, err := os.ReadDir(b.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(b.baseDir, de.Name())); err != nil {
			return err
		}
	}
	return nil
}
