package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultDuckDuckGoEndpoint = "https://api.duckduckgo.com/"
	DefaultDuckDuckGoTimeout  = 15 * time.Second
	defaultSearchLimit        = 5
	maxSearchLimit            = 20
)

// DuckDuckGoTool answers search queries using the DuckDuckGo instant
// answer API. Results are abstracts and related topics, not full web
// search, which keeps responses compact enough to hand back to a model.
type DuckDuckGoTool struct {
	endpoint string
	client   *http.Client
}

// DuckDuckGoToolOptions configures the tool.
type DuckDuckGoToolOptions struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

// NewDuckDuckGoTool creates a new DuckDuckGoTool.
func NewDuckDuckGoTool(options DuckDuckGoToolOptions) *DuckDuckGoTool {
	if options.Endpoint == "" {
		options.Endpoint = DefaultDuckDuckGoEndpoint
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultDuckDuckGoTimeout
	}
	if options.Client == nil {
		options.Client = &http.Client{Timeout: options.Timeout}
	}
	return &DuckDuckGoTool{
		endpoint: options.Endpoint,
		client:   options.Client,
	}
}

func (t *DuckDuckGoTool) Name() string {
	return "web_search"
}

func (t *DuckDuckGoTool) Description() string {
	return "Searches the web for the given 'query' and returns the best available abstract plus related results. Optional 'limit' caps the related results (default 5, max 20)."
}

type duckDuckGoResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	Answer        string `json:"Answer"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (t *DuckDuckGoTool) Call(ctx context.Context, args map[string]any) (any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("web_search requires a 'query' argument")
	}
	limit := intArg(args, "limit", defaultSearchLimit)
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1",
		t.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search returned status %d: %s", resp.StatusCode, body)
	}
	var parsed duckDuckGoResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding search response: %w", err)
	}

	results := make([]any, 0, limit)
	for _, topic := range parsed.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		results = append(results, map[string]any{
			"text": topic.Text,
			"url":  topic.FirstURL,
		})
		if len(results) >= limit {
			break
		}
	}
	return map[string]any{
		"heading":  parsed.Heading,
		"abstract": parsed.AbstractText,
		"url":      parsed.AbstractURL,
		"answer":   parsed.Answer,
		"results":  results,
	}, nil
}

// intArg reads an integer argument that may arrive as any numeric type
// after crossing the sandbox boundary.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
