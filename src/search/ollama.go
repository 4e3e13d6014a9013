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
)

// OllamaSearcher implements Searcher against the Ollama web-search endpoint,
// as an alternate backend for fully local deployments.
type OllamaSearcher struct {
	Host       string
	APIKey     string
	HTTPClient *http.Client
}

// NewOllamaSearcher reads OLLAMA_HOST and OLLAMA_API_KEY from the environment.
func NewOllamaSearcher() *OllamaSearcher {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaSearcher{
		Host:       host,
		APIKey:     os.Getenv("OLLAMA_API_KEY"),
		HTTPClient: &http.Client{Timeout: searchTimeout},
	}
}

func (o *OllamaSearcher) Search(ctx context.Context, query string, limit int) ([]Result, Metadata) {
	endpoint := fmt.Sprintf("%s/api/web_search", strings.TrimRight(o.Host, "/"))
	meta := Metadata{Called: true, Endpoint: endpoint}

	reqBody := map[string]any{"query": query}
	if limit > 0 {
		reqBody["limit"] = limit
	}
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(reqBody); err != nil {
		meta.Error = fmt.Sprintf("encode request: %v", err)
		return nil, meta
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, buf)
	if err != nil {
		meta.Error = fmt.Sprintf("new request: %v", err)
		return nil, meta
	}
	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		meta.Error = fmt.Sprintf("http request: %v", err)
		return nil, meta
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	meta.HTTPStatus = resp.StatusCode
	if resp.StatusCode >= 300 {
		meta.Error = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncateBody(body, 200))
		return nil, meta
	}

	var data struct {
		Results []map[string]string `json:"results"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		meta.Error = fmt.Sprintf("decode response: %v", err)
		return nil, meta
	}
	meta.ResultsCount = len(data.Results)
	if len(data.Results) == 0 {
		return nil, meta
	}

	results := make([]Result, 0, limit)
	for _, item := range data.Results {
		if limit > 0 && len(results) >= limit {
			break
		}
		snippet := item["content"]
		if snippet == "" {
			snippet = item["snippet"]
		}
		link := item["url"]
		if link == "" {
			link = item["link"]
		}
		results = append(results, Result{Title: item["title"], Snippet: snippet, Link: link})
	}
	meta.Success = true
	return results, meta
}
