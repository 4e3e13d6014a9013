// Package assistant coordinates memory retrieval, web search, prompt
// assembly, model invocation and interaction persistence behind a single
// Answer call.
package assistant

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/mnemos-ai/mnemos/src/memory"
	"github.com/mnemos-ai/mnemos/src/models"
	"github.com/mnemos-ai/mnemos/src/prompt"
	"github.com/mnemos-ai/mnemos/src/retrieval"
	"github.com/mnemos-ai/mnemos/src/search"
)

// Options configure an Assistant. Model is required; everything else has a
// working default or may be left nil to disable the corresponding phase.
type Options struct {
	Model models.Agent

	// Store receives persisted interactions. Nil disables persistence.
	Store memory.Store

	// Merger serves memory retrieval. Nil disables the memory phase even
	// when a request asks for it.
	Merger *retrieval.Merger

	// Search serves web retrieval. Nil disables the search phase.
	Search *search.Orchestrator

	// Builder assembles the final prompt. Nil uses the default budgets.
	Builder *prompt.Builder

	// SearchLimit is how many hits to request per question.
	SearchLimit int

	// AttachmentDir is where uploaded images are persisted. Empty disables
	// attachment storage.
	AttachmentDir string

	Logger *log.Logger

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Assistant answers questions with optional memory and web context.
type Assistant struct {
	model         models.Agent
	store         memory.Store
	merger        *retrieval.Merger
	searcher      *search.Orchestrator
	builder       *prompt.Builder
	searchLimit   int
	attachmentDir string
	logger        *log.Logger
	now           func() time.Time
}

// New builds an Assistant from the given options.
func New(opts Options) (*Assistant, error) {
	if opts.Model == nil {
		return nil, errors.New("assistant: Model is required")
	}
	if opts.Builder == nil {
		opts.Builder = prompt.NewBuilder()
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 3
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "assistant: ", log.LstdFlags)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Assistant{
		model:         opts.Model,
		store:         opts.Store,
		merger:        opts.Merger,
		searcher:      opts.Search,
		builder:       opts.Builder,
		searchLimit:   opts.SearchLimit,
		attachmentDir: opts.AttachmentDir,
		logger:        opts.Logger,
		now:           opts.Clock,
	}, nil
}
