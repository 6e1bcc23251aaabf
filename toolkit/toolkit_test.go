package toolkit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name string
	desc string
	fn   func(ctx context.Context, args map[string]any) (any, error)
}

func (t *stubTool) Name() string        { return t.name }
func (t *stubTool) Description() string { return t.desc }
func (t *stubTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(
		&stubTool{name: "b_tool", desc: "second"},
		&stubTool{name: "a_tool", desc: "first"},
	)
	assert.Equal(t, []string{"a_tool", "b_tool"}, registry.Names())

	tool, ok := registry.Get("a_tool")
	require.True(t, ok)
	assert.Equal(t, "a_tool", tool.Name())

	_, ok = registry.Get("missing")
	assert.False(t, ok)

	registry.Register(&stubTool{name: "a_tool", desc: "replaced"})
	tool, _ = registry.Get("a_tool")
	assert.Equal(t, "replaced", tool.Description())

	assert.Equal(t, []string{
		"a_tool: replaced",
		"b_tool: second",
	}, registry.Describe())
}

func TestDuckDuckGoTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "go programming", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Write([]byte(`{
			"Heading": "Go",
			"AbstractText": "Go is a programming language.",
			"AbstractURL": "https://en.wikipedia.org/wiki/Go",
			"RelatedTopics": [
				{"Text": "Golang", "FirstURL": "https://go.dev"},
				{"Text": ""},
				{"Text": "Gopher", "FirstURL": "https://go.dev/gopher"}
			]
		}`))
	}))
	defer server.Close()

	tool := NewDuckDuckGoTool(DuckDuckGoToolOptions{Endpoint: server.URL})
	out, err := tool.Call(context.Background(), map[string]any{
		"query": "go programming",
		"limit": 1,
	})
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Go is a programming language.", result["abstract"])
	results, ok := result["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 1, "limit applies and empty topics are skipped")
}

func TestDuckDuckGoToolRequiresQuery(t *testing.T) {
	tool := NewDuckDuckGoTool(DuckDuckGoToolOptions{})
	_, err := tool.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query")
}

func TestWikipediaTool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Ada_Lovelace", r.URL.Path)
		w.Write([]byte(`{
			"title": "Ada Lovelace",
			"description": "English mathematician",
			"extract": "Ada Lovelace was an English mathematician.",
			"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Ada_Lovelace"}}
		}`))
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolOptions{Endpoint: server.URL})
	out, err := tool.Call(context.Background(), map[string]any{"title": "Ada Lovelace"})
	require.NoError(t, err)

	result, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", result["title"])
	assert.Contains(t, result["extract"], "mathematician")
}

func TestWikipediaToolNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tool := NewWikipediaTool(WikipediaToolOptions{Endpoint: server.URL})
	_, err := tool.Call(context.Background(), map[string]any{"title": "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wikipedia article")
}

func TestIntArg(t *testing.T) {
	assert.Equal(t, 3, intArg(map[string]any{"n": 3}, "n", 9))
	assert.Equal(t, 3, intArg(map[string]any{"n": int64(3)}, "n", 9))
	assert.Equal(t, 3, intArg(map[string]any{"n": 3.0}, "n", 9))
	assert.Equal(t, 9, intArg(map[string]any{}, "n", 9))
}
