package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultWikipediaEndpoint = "https://en.wikipedia.org/api/rest_v1/page/summary"
	DefaultWikipediaTimeout  = 15 * time.Second
)

// WikipediaTool returns the lead summary of a Wikipedia article.
type WikipediaTool struct {
	endpoint string
	client   *http.Client
}

// WikipediaToolOptions configures the tool.
type WikipediaToolOptions struct {
	Endpoint string
	Client   *http.Client
	Timeout  time.Duration
}

// NewWikipediaTool creates a new WikipediaTool.
func NewWikipediaTool(options WikipediaToolOptions) *WikipediaTool {
	if options.Endpoint == "" {
		options.Endpoint = DefaultWikipediaEndpoint
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultWikipediaTimeout
	}
	if options.Client == nil {
		options.Client = &http.Client{Timeout: options.Timeout}
	}
	return &WikipediaTool{
		endpoint: options.Endpoint,
		client:   options.Client,
	}
}

func (t *WikipediaTool) Name() string {
	return "wikipedia_summary"
}

func (t *WikipediaTool) Description() string {
	return "Returns the summary of the Wikipedia article named by 'title', with the article URL."
}

type wikipediaSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (t *WikipediaTool) Call(ctx context.Context, args map[string]any) (any, error) {
	title, _ := args["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("wikipedia_summary requires a 'title' argument")
	}
	slug := url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.endpoint+"/"+slug, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("no wikipedia article found for %q", title)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("wikipedia returned status %d: %s", resp.StatusCode, body)
	}
	var summary wikipediaSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("error decoding wikipedia response: %w", err)
	}
	return map[string]any{
		"title":       summary.Title,
		"description": summary.Description,
		"extract":     summary.Extract,
		"url":         summary.ContentURLs.Desktop.Page,
	}, nil
}
