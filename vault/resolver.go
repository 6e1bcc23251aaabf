package vault

import (
	"context"
	"fmt"
	"slices"
)

// DefaultMaxDepth bounds how many resolution passes run over a text.
// Resolved content may itself contain placeholders, so each pass can
// introduce new references; the bound guarantees termination when entries
// reference each other cyclically.
const DefaultMaxDepth = 3

// MissingMarker is the visible placeholder substituted for references to
// entries that do not exist. It keeps partial results usable by the model
// instead of hard-failing an execution turn.
func MissingMarker(id string) string {
	return fmt.Sprintf("[[missing:%s]]", id)
}

// ResolveOptions configure a resolution pass.
type ResolveOptions struct {
	// MaxDepth bounds the number of passes. Zero means DefaultMaxDepth.
	MaxDepth int

	// Mode selects how resolved content is rendered. Zero value means
	// full content.
	Mode RetrieveMode

	// FailOnMissing makes Resolve return an error on the first missing
	// reference instead of substituting a marker.
	FailOnMissing bool
}

// Resolution is the outcome of resolving placeholders in a text.
type Resolution struct {
	// Text is the input with every resolvable placeholder replaced.
	Text string

	// References lists the ids that were resolved, in first-seen order.
	References []string

	// Missing lists the ids that had no vault entry, in first-seen order.
	Missing []string

	// Depth is the number of passes that performed at least one
	// replacement.
	Depth int

	// Unresolved lists ids still present after MaxDepth passes, which
	// indicates a reference cycle or over-deep nesting.
	Unresolved []string
}

// MaxDepthExceeded reports whether placeholders remained after the final
// pass.
func (r *Resolution) MaxDepthExceeded() bool {
	return len(r.Unresolved) > 0
}

// Resolver rewrites vault placeholder tokens in text into the referenced
// entries' content.
type Resolver struct {
	store *Store
}

// NewResolver returns a Resolver backed by the given store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve replaces every placeholder occurrence in the text with the
// referenced entry's content, running up to MaxDepth passes. A pass that
// performs no replacement stops the loop early. Missing references become
// visible markers by default.
func (r *Resolver) Resolve(ctx context.Context, text string, opts ResolveOptions) (*Resolution, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeFull
	}

	res := &Resolution{Text: text}
	seenRef := map[string]bool{}
	seenMissing := map[string]bool{}

	for pass := 0; pass < maxDepth; pass++ {
		replaced := false
		var missingErr error

		res.Text = refPattern.ReplaceAllStringFunc(res.Text, func(token string) string {
			if missingErr != nil {
				return token
			}
			id := ExtractID(token)
			content, err := r.store.Retrieve(ctx, id, mode, 0)
			if err != nil {
				if opts.FailOnMissing {
					missingErr = fmt.Errorf("unresolved vault reference %q: %w", id, err)
					return token
				}
				if !seenMissing[id] {
					seenMissing[id] = true
					res.Missing = append(res.Missing, id)
				}
				replaced = true
				return MissingMarker(id)
			}
			if !seenRef[id] {
				seenRef[id] = true
				res.References = append(res.References, id)
			}
			replaced = true
			return content
		})

		if missingErr != nil {
			return nil, missingErr
		}
		if !replaced {
			break
		}
		res.Depth++
	}

	// Anything still matching after the final pass is unresolvable within
	// the depth budget.
	for _, m := range refPattern.FindAllStringSubmatch(res.Text, -1) {
		id := m[1]
		if !contains(res.Unresolved, id) {
			res.Unresolved = append(res.Unresolved, id)
		}
	}
	return res, nil
}

// Validate checks a text for missing references without mutating it.
func (r *Resolver) Validate(ctx context.Context, text string) (bool, []string) {
	var missing []string
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if _, err := r.store.Get(ctx, id); err != nil {
			if !contains(missing, id) {
				missing = append(missing, id)
			}
		}
	}
	return len(missing) == 0, missing
}

// References returns the distinct placeholder ids occurring in a text, in
// first-seen order.
func References(text string) []string {
	var ids []string
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		if !contains(ids, m[1]) {
			ids = append(ids, m[1])
		}
	}
	return ids
}

func contains(items []string, s string) bool {
	return slices.Contains(items, s)
}
