package search

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	fetchTimeout   = 10 * time.Second
	maxPageChars   = 30000
	maxPageBytes   = 2 << 20
	minReadableLen = 200
)

// PageFetcher extracts a page's main article text with readability,
// discarding markup and navigation. Any failure yields an empty string.
type PageFetcher struct {
	HTTPClient *http.Client
	logger     *log.Logger
}

func NewPageFetcher() *PageFetcher {
	return &PageFetcher{
		HTTPClient: &http.Client{Timeout: fetchTimeout},
		logger:     log.New(os.Stderr, "fetch: ", log.LstdFlags),
	}
}

// WithLogger overrides the default logger.
func (f *PageFetcher) WithLogger(logger *log.Logger) *PageFetcher {
	if logger != nil {
		f.logger = logger
	}
	return f
}

func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) string {
	if rawURL == "" {
		return ""
	}
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		f.logger.Printf("bad url %q: %v", rawURL, err)
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		f.logger.Printf("fetch failed for %s: %v", rawURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Printf("non-200 status %d for %s", resp.StatusCode, rawURL)
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		f.logger.Printf("read body failed for %s: %v", rawURL, err)
		return ""
	}

	text := ""
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		text = strings.TrimSpace(article.TextContent)
	}
	if len(text) < minReadableLen {
		// Readability came up thin (script-heavy or non-article page); fall
		// back to a crude whole-page tag strip.
		text = strings.TrimSpace(stripHTML(string(body)))
	}
	if len(text) > maxPageChars {
		text = text[:maxPageChars]
	}
	return text
}

var (
	htmlScriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
)

func stripHTML(s string) string {
	s = htmlScriptRe.ReplaceAllString(s, " ")
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	return strings.Join(strings.Fields(s), " ")
}

var _ Fetcher = (*PageFetcher)(nil)
