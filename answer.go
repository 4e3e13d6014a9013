package assistant

import (
	"context"
	"fmt"
	"sync"

	"github.com/mnemos-ai/mnemos/src/extract"
	"github.com/mnemos-ai/mnemos/src/models"
	"github.com/mnemos-ai/mnemos/src/search"
)

// Request describes one question. Memory and search context are opt-in per
// request; Personality flavors the system prompt for this call only.
type Request struct {
	Question    string
	UseMemory   bool
	UseSearch   bool
	Personality string
	Images      []models.File
	FilePaths   []string
}

// Response carries the answer plus everything that went into it, so callers
// can show provenance and timing to the user.
type Response struct {
	Answer         string
	SearchMetadata search.Metadata
	SearchTexts    []string
	MemoryTexts    []string
	Timings        map[string]float64
}

// Answer runs the full pipeline: retrieve memory and web context (in
// parallel when both are enabled), assemble the prompt, call the model, and
// persist the interaction. Retrieval and persistence failures degrade
// silently; only a model failure is returned as an error.
func (a *Assistant) Answer(ctx context.Context, req Request) (Response, error) {
	timings := make(map[string]float64)
	t0 := a.now()

	var (
		memoryTexts []string
		searchTexts []string
		searchMeta  search.Metadata
	)

	runMemory := req.UseMemory && a.merger != nil
	runSearch := req.UseSearch && a.searcher != nil

	switch {
	case runMemory && runSearch:
		var wg sync.WaitGroup
		var memorySec, searchSec float64
		wg.Add(2)
		go func() {
			defer wg.Done()
			t := a.now()
			memoryTexts = a.merger.Retrieve(ctx, req.Question)
			memorySec = a.now().Sub(t).Seconds()
		}()
		go func() {
			defer wg.Done()
			t := a.now()
			searchTexts, searchMeta = a.searcher.Gather(ctx, req.Question, a.searchLimit)
			searchSec = a.now().Sub(t).Seconds()
		}()
		wg.Wait()
		timings["memory_query"] = memorySec
		timings["search_total"] = searchSec
	case runMemory:
		t := a.now()
		memoryTexts = a.merger.Retrieve(ctx, req.Question)
		timings["memory_query"] = a.now().Sub(t).Seconds()
	case runSearch:
		t := a.now()
		searchTexts, searchMeta = a.searcher.Gather(ctx, req.Question, a.searchLimit)
		timings["search_total"] = a.now().Sub(t).Seconds()
	}

	fileTexts := a.extractFiles(req.FilePaths)

	tPrompt := a.now()
	promptText := a.builder.Build(req.Question, req.Personality, memoryTexts, searchTexts, fileTexts)
	timings["prompt_build"] = a.now().Sub(tPrompt).Seconds()

	tModel := a.now()
	answer, err := a.generate(ctx, promptText, req.Images)
	timings["model_run"] = a.now().Sub(tModel).Seconds()
	if err != nil {
		return Response{}, fmt.Errorf("model: %w", err)
	}

	a.persistInteraction(ctx, req, answer)

	timings["total"] = a.now().Sub(t0).Seconds()
	return Response{
		Answer:         answer,
		SearchMetadata: searchMeta,
		SearchTexts:    searchTexts,
		MemoryTexts:    memoryTexts,
		Timings:        timings,
	}, nil
}

// BuildPrompt assembles the prompt a request would produce without calling
// the model. Used by the debug endpoint.
func (a *Assistant) BuildPrompt(ctx context.Context, req Request) (string, []string, []string) {
	var memoryTexts, searchTexts []string
	if req.UseMemory && a.merger != nil {
		memoryTexts = a.merger.Retrieve(ctx, req.Question)
	}
	if req.UseSearch && a.searcher != nil {
		searchTexts, _ = a.searcher.Gather(ctx, req.Question, a.searchLimit)
	}
	fileTexts := a.extractFiles(req.FilePaths)
	return a.builder.Build(req.Question, req.Personality, memoryTexts, searchTexts, fileTexts), memoryTexts, searchTexts
}

func (a *Assistant) generate(ctx context.Context, promptText string, images []models.File) (string, error) {
	if len(images) > 0 {
		return a.model.GenerateWithFiles(ctx, promptText, images)
	}
	return a.model.Generate(ctx, promptText)
}

// extractFiles pulls text out of each referenced file. A file that cannot be
// read is logged and skipped rather than failing the request.
func (a *Assistant) extractFiles(paths []string) []string {
	var texts []string
	for _, p := range paths {
		text, err := extract.File(p)
		if err != nil {
			a.logger.Printf("extract %s: %v", p, err)
			continue
		}
		if text != "" {
			texts = append(texts, text)
		}
	}
	return texts
}
