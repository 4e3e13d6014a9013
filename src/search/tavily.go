package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	tavilyEndpoint = "https://api.tavily.com/search"
	searchTimeout  = 15 * time.Second
	userAgent      = "mnemos/1.0 (+https://github.com/mnemos-ai/mnemos)"
)

// TavilyClient implements Searcher against the Tavily search API.
type TavilyClient struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

// NewTavilyClient reads TAVILY_API_KEY from the environment.
func NewTavilyClient() *TavilyClient {
	return &TavilyClient{
		APIKey:   os.Getenv("TAVILY_API_KEY"),
		Endpoint: tavilyEndpoint,
		HTTPClient: &http.Client{
			Timeout: searchTimeout,
		},
	}
}

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Link    string `json:"link"`
}

// Search runs one API call and normalizes the hits. Every failure mode —
// missing key, network error, non-200 status, empty result set — comes back
// as ([], metadata), never as a panic or error.
func (c *TavilyClient) Search(ctx context.Context, query string, limit int) ([]Result, Metadata) {
	meta := Metadata{Called: true, Endpoint: c.Endpoint}

	if c.APIKey == "" {
		meta.Error = "no API key configured"
		return nil, meta
	}

	payload, err := json.Marshal(tavilyRequest{
		APIKey:      c.APIKey,
		Query:       query,
		SearchDepth: "basic",
		MaxResults:  limit,
	})
	if err != nil {
		meta.Error = err.Error()
		return nil, meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		meta.Error = err.Error()
		return nil, meta
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		meta.Error = err.Error()
		return nil, meta
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	meta.HTTPStatus = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		meta.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncateBody(body, 200))
		return nil, meta
	}

	var parsed struct {
		Results []tavilyResult `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		meta.Error = fmt.Sprintf("decode response: %v", err)
		return nil, meta
	}
	meta.ResultsCount = len(parsed.Results)
	if len(parsed.Results) == 0 {
		return nil, meta
	}

	results := make([]Result, 0, limit)
	for _, item := range parsed.Results {
		if len(results) >= limit {
			break
		}
		results = append(results, normalizeTavily(item))
	}
	meta.Success = true
	return results, meta
}

// normalizeTavily maps an API hit onto {title, snippet, link}, preferring the
// full content field and falling back to the short snippet.
func normalizeTavily(item tavilyResult) Result {
	snippet := item.Content
	if snippet == "" {
		snippet = item.Snippet
	}
	link := item.URL
	if link == "" {
		link = item.Link
	}
	return Result{Title: item.Title, Snippet: snippet, Link: link}
}

func truncateBody(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > n {
		return s[:n]
	}
	return s
}
