package vault

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewShortString(t *testing.T) {
	preview, truncated := BuildPreview("hello", 800)
	assert.Equal(t, "hello", preview)
	assert.False(t, truncated)
}

func TestPreviewLongString(t *testing.T) {
	preview, truncated := BuildPreview(strings.Repeat("x", 1000), 800)
	assert.True(t, truncated)
	assert.Equal(t, strings.Repeat("x", 800)+"...", preview)
}

func TestPreviewSamplesLeadingElements(t *testing.T) {
	items := make([]any, 100)
	for i := range items {
		items[i] = float64(i)
	}
	preview, truncated := BuildPreview(items, 800)
	assert.True(t, truncated)
	assert.Contains(t, preview, "0, 1, 2, 3, 4")
	assert.Contains(t, preview, "+95 more")
	assert.NotContains(t, preview, "99")
}

func TestPreviewMapSortedSample(t *testing.T) {
	value := map[string]any{
		"zeta": "z", "alpha": "a", "mid": "m",
	}
	preview, truncated := BuildPreview(value, 800)
	assert.False(t, truncated)
	assert.Equal(t, `{alpha: "a", mid: "m", zeta: "z"}`, preview)
}

func TestPreviewMapTruncatesKeys(t *testing.T) {
	value := map[string]any{}
	for i := 0; i < 20; i++ {
		value[fmt.Sprintf("key%02d", i)] = float64(i)
	}
	preview, truncated := BuildPreview(value, 800)
	assert.True(t, truncated)
	assert.Contains(t, preview, "key00")
	assert.Contains(t, preview, "+15 more")
}

func TestPreviewNestedCollectionsCollapse(t *testing.T) {
	value := []any{
		map[string]any{"a": 1.0, "b": 2.0},
		[]any{1.0, 2.0, 3.0},
		"text",
	}
	preview, _ := BuildPreview(value, 800)
	assert.Contains(t, preview, "{2 keys}")
	assert.Contains(t, preview, "[3 items]")
	assert.Contains(t, preview, `"text"`)
}

func TestPreviewFunction(t *testing.T) {
	preview, truncated := BuildPreview(FuncRecord{Name: "score", Source: "def score(x):\n  return x * 2"}, 800)
	assert.False(t, truncated)
	assert.True(t, strings.HasPrefix(preview, "[Function score]"))
	assert.NotContains(t, preview, "\n")

	preview, _ = BuildPreview(FuncRecord{}, 800)
	assert.Equal(t, "[Function anonymous]", preview)
}

func TestPreviewLongStringInsideCollection(t *testing.T) {
	value := []any{strings.Repeat("y", 200)}
	preview, _ := BuildPreview(value, 800)
	// Scalars inside collections get their own tighter budget
	require.Less(t, len(preview), 100)
	assert.Contains(t, preview, "...")
}

func TestPreviewNil(t *testing.T) {
	preview, truncated := BuildPreview(nil, 800)
	assert.Equal(t, "null", preview)
	assert.False(t, truncated)
}
