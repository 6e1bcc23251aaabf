package vault

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Entry is one stored artifact in the vault. The raw value is never held
// directly; Serialized is its round-trippable encoding and Preview a
// bounded human-readable summary.
type Entry struct {
	// ID uniquely identifies the entry. Caller-supplied or generated.
	ID string `json:"id"`

	// Reference is the canonical placeholder token for the entry,
	// derived deterministically from ID.
	Reference string `json:"reference"`

	// Serialized is the round-trippable string encoding of the value.
	Serialized string `json:"serialized"`

	// Preview is a bounded-length human-readable summary.
	Preview string `json:"preview"`

	// PreviewTruncated reports whether the preview was clipped.
	PreviewTruncated bool `json:"preview_truncated,omitempty"`

	// Stats holds cheap size measurements of the value.
	Stats Stats `json:"stats"`

	// Type is the semantic type tag ("text", "object", "function", ...).
	Type string `json:"type"`

	// RawType is the underlying Go type tag.
	RawType string `json:"raw_type"`

	// Bytes is the serialized size estimate.
	Bytes int `json:"bytes"`

	// Label is an optional human-readable name.
	Label string `json:"label,omitempty"`

	// Tags is a set of free-form labels.
	Tags []string `json:"tags,omitempty"`

	// Metadata stores structured extras.
	Metadata map[string]any `json:"metadata,omitempty"`

	// Source is a provenance tag.
	Source string `json:"source,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats holds cheap size measurements for a stored value.
type Stats struct {
	// Length is the character length for strings, or the element/key
	// count for collections.
	Length int `json:"length"`

	// Keys is the top-level key count for objects, zero otherwise.
	Keys int `json:"keys,omitempty"`
}

// refPattern matches vault placeholder tokens embedded in text.
var refPattern = regexp.MustCompile(`\[\[vault:([A-Za-z0-9][A-Za-z0-9_.:-]*)\]\]`)

// Reference returns the canonical placeholder token for an id.
func Reference(id string) string {
	return fmt.Sprintf("[[vault:%s]]", id)
}

// ExtractID accepts either a placeholder token or a bare id and returns
// the id.
func ExtractID(token string) string {
	token = strings.TrimSpace(token)
	if m := refPattern.FindStringSubmatch(token); m != nil {
		return m[1]
	}
	return token
}
