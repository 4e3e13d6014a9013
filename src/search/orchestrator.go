package search

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mnemos-ai/mnemos/src/concurrent"
)

const (
	// Snippet-driven truncation: a long pre-fetched snippet already carries
	// the gist, so less page text is appended.
	longSnippetLen     = 300
	pageBudgetShort    = 1000
	pageBudgetStandard = 1500

	defaultFetchWidth = 3
)

// Orchestrator runs one search call and a bounded concurrent fan-out of
// per-hit page fetches, producing summarized context strings.
type Orchestrator struct {
	searcher   Searcher
	fetcher    Fetcher
	fetchWidth int
	logger     *log.Logger
}

func NewOrchestrator(searcher Searcher, fetcher Fetcher) *Orchestrator {
	return &Orchestrator{
		searcher:   searcher,
		fetcher:    fetcher,
		fetchWidth: defaultFetchWidth,
		logger:     log.New(os.Stderr, "search: ", log.LstdFlags),
	}
}

// WithFetchWidth overrides the page-fetch fan-out degree.
func (o *Orchestrator) WithFetchWidth(width int) *Orchestrator {
	if width > 0 {
		o.fetchWidth = width
	}
	return o
}

// WithLogger overrides the default logger.
func (o *Orchestrator) WithLogger(logger *log.Logger) *Orchestrator {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// Gather returns up to limit summarized context strings for the question
// plus the metadata of the search call. A failed search yields an empty list
// and an error-tagged metadata record; a failed page fetch degrades that hit
// to snippet-only output. Summaries come back in API rank order.
func (o *Orchestrator) Gather(ctx context.Context, question string, limit int) ([]string, Metadata) {
	if o.searcher == nil {
		return nil, Metadata{}
	}

	results, meta := o.searcher.Search(ctx, question, limit)
	if len(results) == 0 {
		return nil, meta
	}

	summaries, _ := concurrent.ParallelMap(ctx, results, func(r Result) (string, error) {
		var page string
		if o.fetcher != nil && r.Link != "" {
			page = o.fetcher.Fetch(ctx, r.Link)
		}
		return summarize(r, page), nil
	}, o.fetchWidth)

	texts := make([]string, 0, len(summaries))
	for _, s := range summaries {
		if s != "" {
			texts = append(texts, s)
		}
	}
	return texts, meta
}

// summarize folds a hit and its fetched page text into one context string.
// When both the snippet and the page text are empty the hit contributes
// nothing.
func summarize(r Result, page string) string {
	budget := pageBudgetStandard
	if len(r.Snippet) > longSnippetLen {
		budget = pageBudgetShort
	}
	if len(page) > budget {
		page = page[:budget]
	}

	summary := r.Snippet + "\n" + page
	if strings.TrimSpace(summary) == "" {
		return ""
	}
	return fmt.Sprintf("%s - %s", r.Title, summary)
}
