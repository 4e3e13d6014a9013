package search

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
)

type fakeSearcher struct {
	results []Result
	meta    Metadata
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, limit int) ([]Result, Metadata) {
	f.calls++
	if len(f.results) > limit {
		return f.results[:limit], f.meta
	}
	return f.results, f.meta
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) string {
	return f.pages[url]
}

func quietOrchestrator(s Searcher, f Fetcher) *Orchestrator {
	return NewOrchestrator(s, f).WithLogger(log.New(io.Discard, "", 0))
}

func TestGatherShortSnippetGetsStandardPageBudget(t *testing.T) {
	snippet := strings.Repeat("s", 50)
	page := strings.Repeat("p", 2000)
	searcher := &fakeSearcher{
		results: []Result{{Title: "Example", Snippet: snippet, Link: "http://example.com"}},
		meta:    Metadata{Called: true, Success: true, ResultsCount: 1},
	}
	fetcher := &fakeFetcher{pages: map[string]string{"http://example.com": page}}

	texts, meta := quietOrchestrator(searcher, fetcher).Gather(context.Background(), "q", 3)
	if !meta.Success {
		t.Fatalf("metadata not propagated: %+v", meta)
	}
	if len(texts) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(texts))
	}
	want := "Example - " + snippet + "\n" + page[:1500]
	if texts[0] != want {
		t.Fatalf("summary mismatch:\ngot  %d chars\nwant %d chars", len(texts[0]), len(want))
	}
}

func TestGatherLongSnippetGetsReducedPageBudget(t *testing.T) {
	snippet := strings.Repeat("s", 400)
	page := strings.Repeat("p", 2000)
	searcher := &fakeSearcher{
		results: []Result{{Title: "T", Snippet: snippet, Link: "http://example.com"}},
		meta:    Metadata{Called: true, Success: true, ResultsCount: 1},
	}
	fetcher := &fakeFetcher{pages: map[string]string{"http://example.com": page}}

	texts, _ := quietOrchestrator(searcher, fetcher).Gather(context.Background(), "q", 3)
	want := "T - " + snippet + "\n" + page[:1000]
	if texts[0] != want {
		t.Fatalf("long snippet should cap page text at 1000 chars, got %d total", len(texts[0]))
	}
}

func TestGatherFetchFailureDegradesToSnippetOnly(t *testing.T) {
	searcher := &fakeSearcher{
		results: []Result{{Title: "T", Snippet: "short blurb", Link: "http://down.example.com"}},
		meta:    Metadata{Called: true, Success: true, ResultsCount: 1},
	}
	fetcher := &fakeFetcher{pages: map[string]string{}} // every fetch fails

	texts, _ := quietOrchestrator(searcher, fetcher).Gather(context.Background(), "q", 3)
	if len(texts) != 1 {
		t.Fatalf("hit with a snippet must survive a failed fetch, got %v", texts)
	}
	if texts[0] != "T - short blurb\n" {
		t.Fatalf("unexpected degraded summary: %q", texts[0])
	}
}

func TestGatherEmptySnippetAndFailedFetchDropsHit(t *testing.T) {
	searcher := &fakeSearcher{
		results: []Result{
			{Title: "empty", Snippet: "", Link: "http://down.example.com"},
			{Title: "kept", Snippet: "something", Link: ""},
		},
		meta: Metadata{Called: true, Success: true, ResultsCount: 2},
	}
	fetcher := &fakeFetcher{}

	texts, _ := quietOrchestrator(searcher, fetcher).Gather(context.Background(), "q", 3)
	if len(texts) != 1 || !strings.HasPrefix(texts[0], "kept - ") {
		t.Fatalf("empty hit should be dropped, kept hit retained: %v", texts)
	}
}

func TestGatherPreservesAPIRank(t *testing.T) {
	searcher := &fakeSearcher{
		results: []Result{
			{Title: "first", Snippet: "a"},
			{Title: "second", Snippet: "b"},
			{Title: "third", Snippet: "c"},
		},
		meta: Metadata{Called: true, Success: true, ResultsCount: 3},
	}

	texts, _ := quietOrchestrator(searcher, &fakeFetcher{}).Gather(context.Background(), "q", 3)
	if len(texts) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(texts))
	}
	for i, prefix := range []string{"first - ", "second - ", "third - "} {
		if !strings.HasPrefix(texts[i], prefix) {
			t.Fatalf("rank order lost at %d: %v", i, texts)
		}
	}
}

func TestGatherFailedSearchIsIdempotent(t *testing.T) {
	searcher := &fakeSearcher{
		meta: Metadata{Called: true, Success: false, HTTPStatus: 500, Error: "HTTP 500: internal"},
	}
	o := quietOrchestrator(searcher, &fakeFetcher{})

	for i := 0; i < 2; i++ {
		texts, meta := o.Gather(context.Background(), "q", 3)
		if len(texts) != 0 {
			t.Fatalf("call %d: expected no texts, got %v", i, texts)
		}
		if meta.Success || meta.Error == "" || meta.HTTPStatus != 500 {
			t.Fatalf("call %d: expected error-tagged metadata, got %+v", i, meta)
		}
	}
	if searcher.calls != 2 {
		t.Fatalf("expected 2 search calls, got %d", searcher.calls)
	}
}

func TestGatherNilSearcher(t *testing.T) {
	texts, meta := quietOrchestrator(nil, nil).Gather(context.Background(), "q", 3)
	if texts != nil || meta.Called {
		t.Fatalf("nil searcher must be a no-op, got %v, %+v", texts, meta)
	}
}
