package strand

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileSessionRepository stores sessions as individual JSON files on
// disk, one file named {session_id}.json per session. Suitable for CLI
// use and single-user deployments where sessions need to persist
// across process restarts.
//
// All operations are thread-safe using a read-write mutex.
type FileSessionRepository struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileSessionRepository creates a new file-based session repository.
// The base directory is created if it does not exist; a leading ~ is
// expanded to the home directory.
func NewFileSessionRepository(baseDir string) (*FileSessionRepository, error) {
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
	return &FileSessionRepository{baseDir: baseDir}, nil
}

// sessionPath returns the file path for a session ID. IDs that would
// escape the base directory are rejected.
func (r *FileSessionRepository) sessionPath(sessionID string) (string, error) {
	if sessionID == "" ||
		strings.ContainsAny(sessionID, `/\`) ||
		strings.Contains(sessionID, "..") {
		return "", fmt.Errorf("invalid session id: %q", sessionID)
	}
	return filepath.Join(r.baseDir, sessionID+".json"), nil
}

// PutSession stores a session, creating it if new or replacing if it
// exists. The write is atomic: data lands in a temp file first and is
// renamed into place.
func (r *FileSessionRepository) PutSession(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.sessionPath(session.ID)
	if err != nil {
		return err
	}
	session.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(r.baseDir, ".session-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// GetSession retrieves a session by ID.
// Returns ErrSessionNotFound if the session does not exist.
func (r *FileSessionRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.sessionPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes a session by ID.
// This operation is idempotent; deleting a non-existent session returns nil.
func (r *FileSessionRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.sessionPath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ListSessions returns sessions sorted by UpdatedAt descending (most
// recent first). Supports pagination via Offset and Limit.
func (r *FileSessionRepository) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return &ListSessionsOutput{Items: []*Session{}}, nil
		}
		return nil, err
	}

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.baseDir, entry.Name()))
		if err != nil {
			continue // Skip files we can't read
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue // Skip malformed files
		}
		sessions = append(sessions, &session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return &ListSessionsOutput{Items: paginate(sessions, input)}, nil
}
