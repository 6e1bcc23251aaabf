package vault

import (
	"context"
	"math/big"
	"reflect"
	"time"

	"github.com/deepnoodle-ai/strand/slogger"
	"github.com/google/uuid"
)

// DefaultStoreThreshold is the content size in characters above which a
// value should be vaulted instead of inlined in model-facing text.
const DefaultStoreThreshold = 500

// RetrieveMode selects how much of an entry Retrieve returns.
type RetrieveMode string

const (
	// ModePreview returns the bounded human-readable summary.
	ModePreview RetrieveMode = "preview"

	// ModeFull returns the complete stored value: the raw string for
	// text entries, the serialized form otherwise.
	ModeFull RetrieveMode = "full"

	// ModeSummary returns the label, or a short preview fallback.
	ModeSummary RetrieveMode = "summary"
)

// ParseMode converts a string to a RetrieveMode, defaulting to preview.
func ParseMode(s string) RetrieveMode {
	switch RetrieveMode(s) {
	case ModeFull:
		return ModeFull
	case ModeSummary:
		return ModeSummary
	default:
		return ModePreview
	}
}

// Store is the content-addressable vault. It derives the serialized form,
// preview, and metadata for each stored value, and applies every mutation
// atomically from the caller's point of view.
type Store struct {
	backend        Backend
	previewLimit   int
	storeThreshold int
	logger         slogger.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithBackend sets the persistence backend. Defaults to MemoryBackend.
func WithBackend(backend Backend) StoreOption {
	return func(s *Store) { s.backend = backend }
}

// WithPreviewLimit sets the default preview character limit.
func WithPreviewLimit(limit int) StoreOption {
	return func(s *Store) { s.previewLimit = limit }
}

// WithStoreThreshold sets the ShouldStore size threshold.
func WithStoreThreshold(threshold int) StoreOption {
	return func(s *Store) { s.storeThreshold = threshold }
}

// WithLogger sets the logger used for store activity.
func WithLogger(logger slogger.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore returns a Store with the given options applied.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		previewLimit:   DefaultPreviewLimit,
		storeThreshold: DefaultStoreThreshold,
		logger:         slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.backend == nil {
		s.backend = NewMemoryBackend()
	}
	return s
}

// PutOptions carry the caller-controlled fields of a stored entry.
type PutOptions struct {
	CustomID string
	Label    string
	Tags     []string
	Type     string
	Metadata map[string]any
	Source   string
}

// Put stores a value. If CustomID names an existing entry, the entry is
// updated in place: every content field is replaced while ID, Reference,
// and CreatedAt are preserved and UpdatedAt is refreshed. Otherwise a new
// entry is created with the supplied or a generated id.
func (s *Store) Put(ctx context.Context, value any, opts PutOptions) (*Entry, error) {
	id := opts.CustomID
	if id == "" {
		id = generateID()
	}

	serialized := Serialize(value)
	preview, truncated := BuildPreview(value, s.previewLimit)
	semantic, raw := TypeOf(value)
	if opts.Type != "" {
		semantic = opts.Type
	}

	now := time.Now()
	entry := &Entry{
		ID:               id,
		Reference:        Reference(id),
		Serialized:       serialized,
		Preview:          preview,
		PreviewTruncated: truncated,
		Stats:            statsOf(value, serialized),
		Type:             semantic,
		RawType:          raw,
		Bytes:            len(serialized),
		Label:            opts.Label,
		Tags:             opts.Tags,
		Metadata:         opts.Metadata,
		Source:           opts.Source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if existing, err := s.backend.Get(ctx, id); err == nil {
		entry.CreatedAt = existing.CreatedAt
	}

	if err := s.backend.Put(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Debug("vault entry stored",
		"id", entry.ID,
		"type", entry.Type,
		"bytes", entry.Bytes,
	)
	return entry, nil
}

// Retrieve returns an entry's content in the requested mode. The limit
// applies to preview mode only; zero means the store's default. Returns
// ErrNotFound for unknown ids.
func (s *Store) Retrieve(ctx context.Context, id string, mode RetrieveMode, limit int) (string, error) {
	entry, err := s.backend.Get(ctx, id)
	if err != nil {
		return "", err
	}
	switch mode {
	case ModeFull:
		return fullContent(entry), nil
	case ModeSummary:
		if entry.Label != "" {
			return entry.Label, nil
		}
		summary, _ := truncateRunes(entry.Preview, 100)
		return summary, nil
	default:
		if limit <= 0 || limit == s.previewLimit {
			return entry.Preview, nil
		}
		// A non-default limit rebuilds the preview from the stored form.
		value, err := Deserialize(entry.Serialized)
		if err != nil {
			preview, _ := truncateRunes(entry.Preview, limit)
			return preview, nil
		}
		preview, _ := BuildPreview(value, limit)
		return preview, nil
	}
}

// Get returns the full entry record for an id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	return s.backend.Get(ctx, id)
}

// ResolveReference accepts either a placeholder token or a bare id and
// returns the matching entry, or ErrNotFound.
func (s *Store) ResolveReference(ctx context.Context, token string) (*Entry, error) {
	return s.backend.Get(ctx, ExtractID(token))
}

// Delete removes an entry. Deleting a missing entry is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// List returns all entries.
func (s *Store) List(ctx context.Context) ([]*Entry, error) {
	return s.backend.List(ctx)
}

// Clear removes every entry from the vault.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx)
}

// ShouldStore is the heuristic gate deciding whether a value belongs in
// the vault rather than inline in model-facing text. Functions, byte
// buffers, big integers, and timestamps always vault since they are not
// natively embeddable in plain text; strings and structures vault once
// their content exceeds the size threshold.
func (s *Store) ShouldStore(value any, force bool) bool {
	if force {
		return true
	}
	switch v := value.(type) {
	case nil:
		return false
	case FuncRecord, *FuncRecord, []byte, time.Time, *big.Int:
		return true
	case string:
		return len([]rune(v)) > s.storeThreshold
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return len(Serialize(value)) > s.storeThreshold
	case reflect.Func:
		return true
	}
	return false
}

// fullContent returns the raw string for text entries and the serialized
// form for everything else.
func fullContent(entry *Entry) string {
	if entry.RawType == "string" {
		if value, err := Deserialize(entry.Serialized); err == nil {
			if s, ok := value.(string); ok {
				return s
			}
		}
	}
	return entry.Serialized
}

func generateID() string {
	return "v-" + uuid.New().String()[:8]
}
