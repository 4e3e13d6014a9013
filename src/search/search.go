package search

import "context"

// Result is one normalized web-search hit. It lives for a single request
// and is never persisted.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// Metadata records the outcome of one search call. Failed calls are reported
// here instead of as errors so a broken search backend can never take down
// an answer.
type Metadata struct {
	Called       bool   `json:"called"`
	Endpoint     string `json:"endpoint,omitempty"`
	HTTPStatus   int    `json:"http_status,omitempty"`
	Success      bool   `json:"success"`
	ResultsCount int    `json:"results_count"`
	Error        string `json:"error,omitempty"`
}

// Searcher queries an external web-search backend. Implementations must not
// panic or return control-flow errors: failures are folded into Metadata and
// an empty result list.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, Metadata)
}

// Fetcher retrieves the main textual content of a page, or returns an empty
// string when the page cannot be fetched or parsed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) string
}
