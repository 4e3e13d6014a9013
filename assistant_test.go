package assistant

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mnemos-ai/mnemos/src/memory"
	"github.com/mnemos-ai/mnemos/src/memory/embed"
	"github.com/mnemos-ai/mnemos/src/models"
	"github.com/mnemos-ai/mnemos/src/retrieval"
	"github.com/mnemos-ai/mnemos/src/search"
)

type fakeModel struct {
	reply       string
	err         error
	prompts     []string
	filePrompts []string
	files       [][]models.File
}

func (m *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	return m.reply, m.err
}

func (m *fakeModel) GenerateWithFiles(_ context.Context, prompt string, files []models.File) (string, error) {
	m.filePrompts = append(m.filePrompts, prompt)
	m.files = append(m.files, files)
	return m.reply, m.err
}

type fakeSearcher struct {
	results []search.Result
	meta    search.Metadata
}

func (s *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]search.Result, search.Metadata) {
	return s.results, s.meta
}

type fakePageFetcher struct{}

func (fakePageFetcher) Fetch(_ context.Context, _ string) string { return "" }

type failingStore struct {
	memory.Store
}

func (failingStore) Upsert(_ context.Context, _, _ string, _ map[string]string) error {
	return errors.New("store down")
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// tickingClock advances one second per call so consecutive interactions get
// distinct ids. Only safe for single-goroutine phases.
func tickingClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestAssistant(t *testing.T, opts Options) (*Assistant, *memory.InMemoryStore) {
	t.Helper()
	store := memory.NewInMemoryStore(embed.DummyEmbedder{})
	if opts.Store == nil {
		opts.Store = store
	}
	if opts.Merger == nil {
		opts.Merger = retrieval.NewMerger(store, retrieval.Options{}).WithLogger(quietLogger())
	}
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	a, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, store
}

func TestAnswerRunsMemoryAndSearchIntoPrompt(t *testing.T) {
	model := &fakeModel{reply: "the answer"}
	searcher := &fakeSearcher{
		results: []search.Result{{Title: "T", Snippet: "web snippet", Link: "http://x"}},
		meta:    search.Metadata{Called: true, Success: true, ResultsCount: 1},
	}
	a, store := newTestAssistant(t, Options{
		Model:  model,
		Search: search.NewOrchestrator(searcher, fakePageFetcher{}).WithLogger(quietLogger()),
	})

	ctx := context.Background()
	store.Upsert(ctx, "note1", "the user likes tea", map[string]string{"type": memory.TypeUserNote})

	resp, err := a.Answer(ctx, Request{Question: "what do I like", UseMemory: true, UseSearch: true})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if len(resp.MemoryTexts) != 1 || resp.MemoryTexts[0] != "the user likes tea" {
		t.Fatalf("memory texts not surfaced: %v", resp.MemoryTexts)
	}
	if len(resp.SearchTexts) != 1 || !strings.Contains(resp.SearchTexts[0], "web snippet") {
		t.Fatalf("search texts not surfaced: %v", resp.SearchTexts)
	}
	if !resp.SearchMetadata.Success {
		t.Fatalf("search metadata lost: %+v", resp.SearchMetadata)
	}

	if len(model.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(model.prompts))
	}
	prompt := model.prompts[0]
	if !strings.Contains(prompt, "the user likes tea") || !strings.Contains(prompt, "web snippet") {
		t.Fatalf("retrieved context missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "User question: what do I like") {
		t.Fatalf("question missing from prompt:\n%s", prompt)
	}

	for _, key := range []string{"memory_query", "search_total", "prompt_build", "model_run", "total"} {
		if _, ok := resp.Timings[key]; !ok {
			t.Errorf("timing %q missing", key)
		}
	}
}

func TestAnswerDisabledPhasesAreSkipped(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	a, _ := newTestAssistant(t, Options{Model: model})

	resp, err := a.Answer(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(resp.MemoryTexts) != 0 || len(resp.SearchTexts) != 0 {
		t.Fatalf("disabled phases produced context: %v %v", resp.MemoryTexts, resp.SearchTexts)
	}
	if _, ok := resp.Timings["memory_query"]; ok {
		t.Error("memory timing recorded for a skipped phase")
	}
	if _, ok := resp.Timings["search_total"]; ok {
		t.Error("search timing recorded for a skipped phase")
	}
}

func TestAnswerModelFailureSurfacesAndSkipsPersist(t *testing.T) {
	model := &fakeModel{err: errors.New("model down")}
	a, store := newTestAssistant(t, Options{Model: model})

	_, err := a.Answer(context.Background(), Request{Question: "q"})
	if err == nil {
		t.Fatal("model failure must surface")
	}
	records, _ := store.ListAll(context.Background())
	if len(records) != 0 {
		t.Fatalf("failed answer must not be persisted, found %d records", len(records))
	}
}

func TestAnswerPersistsInteraction(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	model := &fakeModel{reply: "42"}
	a, store := newTestAssistant(t, Options{Model: model, Clock: fixedClock(now)})

	_, err := a.Answer(context.Background(), Request{Question: "meaning of life", Personality: "stoic"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	records, _ := store.ListAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected one persisted record, got %d", len(records))
	}
	rec := records[0]
	if !strings.HasPrefix(rec.ID, "interaction_20240601_123000_") {
		t.Fatalf("unexpected record id %q", rec.ID)
	}
	if rec.Text != "Q: meaning of life\nA: 42" {
		t.Fatalf("unexpected record text %q", rec.Text)
	}
	if rec.Metadata["type"] != memory.TypeInteraction {
		t.Fatalf("record not typed as interaction: %v", rec.Metadata)
	}
	if rec.Metadata["timestamp"] != "20240601_123000" {
		t.Fatalf("unexpected timestamp %q", rec.Metadata["timestamp"])
	}
	if rec.Metadata["personality"] != "stoic" {
		t.Fatalf("personality missing from metadata: %v", rec.Metadata)
	}
}

func TestAnswerPersistFailureIsSwallowed(t *testing.T) {
	model := &fakeModel{reply: "fine"}
	a, _ := newTestAssistant(t, Options{Model: model, Store: failingStore{}})

	resp, err := a.Answer(context.Background(), Request{Question: "q"})
	if err != nil {
		t.Fatalf("persist failure must not surface: %v", err)
	}
	if resp.Answer != "fine" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
}

func TestAnswerInvalidatesRetrievalCache(t *testing.T) {
	model := &fakeModel{reply: "first"}
	a, store := newTestAssistant(t, Options{
		Model: model,
		Clock: tickingClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
	})

	ctx := context.Background()
	question := "what did we talk about"

	if _, err := a.Answer(ctx, Request{Question: question, UseMemory: true}); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	// A second ask must see the freshly persisted interaction, not a stale
	// cached snapshot of the first retrieval.
	model.reply = "second"
	resp, err := a.Answer(ctx, Request{Question: question, UseMemory: true})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	found := false
	for _, m := range resp.MemoryTexts {
		if strings.Contains(m, "A: first") {
			found = true
		}
	}
	if !found {
		t.Fatalf("second retrieval missed the persisted interaction: %v", resp.MemoryTexts)
	}

	records, _ := store.ListAll(ctx)
	if len(records) != 2 {
		t.Fatalf("expected 2 persisted interactions, got %d", len(records))
	}
}

func TestAnswerWithImagesUsesFilesPath(t *testing.T) {
	model := &fakeModel{reply: "seen"}
	dir := t.TempDir()
	a, store := newTestAssistant(t, Options{Model: model, AttachmentDir: dir})

	images := []models.File{{Name: "cat.png", MIME: "image/png", Data: []byte{1, 2, 3}}}
	_, err := a.Answer(context.Background(), Request{Question: "what is this", Images: images})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if len(model.filePrompts) != 1 || len(model.prompts) != 0 {
		t.Fatalf("images must route through GenerateWithFiles (%d file calls, %d plain calls)",
			len(model.filePrompts), len(model.prompts))
	}
	if len(model.files[0]) != 1 || model.files[0][0].Name != "cat.png" {
		t.Fatalf("image not passed through: %+v", model.files)
	}

	records, _ := store.ListAll(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	refs := records[0].Metadata["attachments"]
	if refs == "" {
		t.Fatal("attachment reference missing from metadata")
	}
	data, err := os.ReadFile(refs)
	if err != nil {
		t.Fatalf("stored attachment unreadable: %v", err)
	}
	if string(data) != string([]byte{1, 2, 3}) {
		t.Fatal("stored attachment content mismatch")
	}
	if filepath.Ext(refs) != ".png" {
		t.Fatalf("attachment should keep its extension, got %q", refs)
	}
}

func TestAnswerExtractsFileTexts(t *testing.T) {
	model := &fakeModel{reply: "ok"}
	a, _ := newTestAssistant(t, Options{Model: model})

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("project deadline is friday"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := a.Answer(context.Background(), Request{
		Question:  "when is the deadline",
		FilePaths: []string{path, filepath.Join(t.TempDir(), "missing.txt")},
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !strings.Contains(model.prompts[0], "project deadline is friday") {
		t.Fatalf("file text missing from prompt:\n%s", model.prompts[0])
	}
}

func TestBuildPromptDebugPath(t *testing.T) {
	model := &fakeModel{reply: "unused"}
	a, store := newTestAssistant(t, Options{Model: model})

	ctx := context.Background()
	store.Upsert(ctx, "n1", "remember this", map[string]string{"type": memory.TypeUserNote})

	prompt, memTexts, searchTexts := a.BuildPrompt(ctx, Request{Question: "q", UseMemory: true})
	if !strings.Contains(prompt, "remember this") {
		t.Fatalf("memory missing from debug prompt:\n%s", prompt)
	}
	if len(memTexts) != 1 || len(searchTexts) != 0 {
		t.Fatalf("unexpected context: %v %v", memTexts, searchTexts)
	}
	if len(model.prompts)+len(model.filePrompts) != 0 {
		t.Fatal("debug prompt must not call the model")
	}
}

func TestNewRequiresModel(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("missing model must error")
	}
}
