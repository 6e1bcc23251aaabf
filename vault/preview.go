package vault

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultPreviewLimit is the preview character budget when the caller
	// does not supply one.
	DefaultPreviewLimit = 800

	// previewSampleSize bounds how many leading elements or keys of a
	// collection appear in a preview. Preview construction touches only
	// the sample, never the full structure.
	previewSampleSize = 5

	// previewScalarLimit bounds how long a single rendered scalar may be
	// inside a collection preview.
	previewScalarLimit = 40

	truncationSuffix = "..."
)

// BuildPreview renders a bounded human-readable summary of a value and
// reports whether anything was clipped.
func BuildPreview(value any, limit int) (string, bool) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	switch v := value.(type) {
	case nil:
		return "null", false
	case string:
		return truncateRunes(v, limit)
	case FuncRecord:
		return renderFunc(v), false
	case *FuncRecord:
		if v == nil {
			return "null", false
		}
		return renderFunc(*v), false
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v)), false
	case time.Time:
		return v.Format(time.RFC3339), false
	case *big.Int:
		return truncateRunes(v.String(), limit)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return previewList(rv, limit)
	case reflect.Map:
		return previewMap(rv, limit)
	case reflect.Pointer:
		if rv.IsNil() {
			return "null", false
		}
		return BuildPreview(rv.Elem().Interface(), limit)
	}
	return truncateRunes(fmt.Sprintf("%v", value), limit)
}

func previewList(rv reflect.Value, limit int) (string, bool) {
	n := rv.Len()
	sample := n
	if sample > previewSampleSize {
		sample = previewSampleSize
	}
	parts := make([]string, 0, sample)
	for i := 0; i < sample; i++ {
		parts = append(parts, compactScalar(rv.Index(i).Interface()))
	}
	truncated := n > sample
	body := strings.Join(parts, ", ")
	if truncated {
		body += fmt.Sprintf(", %s +%d more", truncationSuffix, n-sample)
	}
	out, clipped := truncateRunes(fmt.Sprintf("[%s]", body), limit)
	return out, truncated || clipped
}

func previewMap(rv reflect.Value, limit int) (string, bool) {
	type pair struct {
		key string
		val any
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key: fmt.Sprintf("%v", iter.Key().Interface()),
			val: iter.Value().Interface(),
		})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	sample := len(pairs)
	if sample > previewSampleSize {
		sample = previewSampleSize
	}
	parts := make([]string, 0, sample)
	for _, p := range pairs[:sample] {
		parts = append(parts, fmt.Sprintf("%s: %s", p.key, compactScalar(p.val)))
	}
	truncated := len(pairs) > sample
	body := strings.Join(parts, ", ")
	if truncated {
		body += fmt.Sprintf(", %s +%d more", truncationSuffix, len(pairs)-sample)
	}
	out, clipped := truncateRunes(fmt.Sprintf("{%s}", body), limit)
	return out, truncated || clipped
}

// compactScalar renders one value for use inside a collection preview.
// Nested collections collapse to a size marker so preview cost stays
// bounded by the sample size.
func compactScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		s, _ := truncateRunes(v, previewScalarLimit)
		return fmt.Sprintf("%q", s)
	case FuncRecord:
		return renderFunc(v)
	case *FuncRecord:
		if v == nil {
			return "null"
		}
		return renderFunc(*v)
	case bool:
		return fmt.Sprintf("%t", v)
	case time.Time:
		return v.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("[%d items]", rv.Len())
	case reflect.Map:
		return fmt.Sprintf("{%d keys}", rv.Len())
	}
	return fmt.Sprintf("%v", value)
}

func renderFunc(rec FuncRecord) string {
	name := rec.Name
	if name == "" {
		name = "anonymous"
	}
	snippet := strings.TrimSpace(rec.Source)
	if snippet == "" {
		return fmt.Sprintf("[Function %s]", name)
	}
	snippet, _ = truncateRunes(snippet, previewScalarLimit)
	snippet = strings.ReplaceAll(snippet, "\n", " ")
	return fmt.Sprintf("[Function %s] %s", name, snippet)
}

// truncateRunes clips a string to at most limit runes, appending the
// truncation suffix when clipped.
func truncateRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]) + truncationSuffix, true
}
