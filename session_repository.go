package strand

import (
	"context"
	"sync"
	"time"
)

// ListSessionsInput specifies pagination parameters for listing sessions.
type ListSessionsInput struct {
	// Offset is the number of sessions to skip before returning results.
	Offset int

	// Limit is the maximum number of sessions to return. Zero means no limit.
	Limit int
}

// ListSessionsOutput contains the results of a ListSessions query.
type ListSessionsOutput struct {
	// Items contains the sessions matching the query criteria.
	Items []*Session
}

// SessionRepository stores and retrieves reasoning sessions.
//
// A repository is optional when creating an orchestrator. Without one,
// sessions still work within a single Run call but are not persisted.
type SessionRepository interface {
	// PutSession creates a new session or updates an existing one.
	PutSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by its ID.
	// Returns ErrSessionNotFound if the session does not exist.
	GetSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session by its ID.
	// Returns nil if the session does not exist (idempotent).
	DeleteSession(ctx context.Context, id string) error

	// ListSessions returns sessions matching the pagination criteria.
	// Pass nil for input to retrieve all sessions.
	ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error)
}

// MemorySessionRepository is an in-memory implementation of
// SessionRepository. Suitable for development, testing, and
// single-instance deployments; data does not survive restarts.
//
// All operations are thread-safe using a read-write mutex.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionRepository creates a new empty MemorySessionRepository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*Session),
	}
}

// PutSession stores a session, creating it if new or replacing if it exists.
func (r *MemorySessionRepository) PutSession(ctx context.Context, session *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session.UpdatedAt = time.Now()
	r.sessions[session.ID] = session
	return nil
}

// GetSession retrieves a session by ID.
// Returns ErrSessionNotFound if the session does not exist.
func (r *MemorySessionRepository) GetSession(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession removes a session by ID.
// This operation is idempotent; deleting a non-existent session returns nil.
func (r *MemorySessionRepository) DeleteSession(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

// ListSessions returns sessions with optional pagination.
//
// Note: The order of returned sessions is not guaranteed due to Go map
// iteration semantics. For consistent ordering, sort after retrieval.
func (r *MemorySessionRepository) ListSessions(ctx context.Context, input *ListSessionsInput) (*ListSessionsOutput, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*Session
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	sessions = paginate(sessions, input)
	return &ListSessionsOutput{Items: sessions}, nil
}

func paginate(sessions []*Session, input *ListSessionsInput) []*Session {
	if input == nil {
		return sessions
	}
	if input.Offset > 0 {
		if input.Offset < len(sessions) {
			sessions = sessions[input.Offset:]
		} else {
			sessions = nil
		}
	}
	if input.Limit > 0 && input.Limit < len(sessions) {
		sessions = sessions[:input.Limit]
	}
	return sessions
}
