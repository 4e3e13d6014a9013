// Command app serves the assistant over HTTP: /ask for questions, a small
// memory CRUD surface, a prompt debug endpoint, and the static UI.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	assistant "github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/src/memory"
	"github.com/mnemos-ai/mnemos/src/memory/embed"
	"github.com/mnemos-ai/mnemos/src/models"
	"github.com/mnemos-ai/mnemos/src/retrieval"
	"github.com/mnemos-ai/mnemos/src/search"
)

func main() {
	// Load .env early so every construction site below sees its variables.
	_ = godotenv.Load()

	logger := log.New(os.Stderr, "app: ", log.LstdFlags)
	ctx := context.Background()

	embedder := embed.AutoEmbedder()
	store, err := newStore(ctx, embedder)
	if err != nil {
		logger.Fatalf("memory store: %v", err)
	}

	model, err := newModel(ctx)
	if err != nil {
		logger.Fatalf("model: %v", err)
	}
	model = models.TryCreateCachedLLM(model)

	merger := retrieval.NewMerger(store, retrieval.Options{})
	orchestrator := search.NewOrchestrator(newSearcher(), search.NewPageFetcher())

	a, err := assistant.New(assistant.Options{
		Model:         model,
		Store:         store,
		Merger:        merger,
		Search:        orchestrator,
		AttachmentDir: envOr("MNEMOS_ATTACHMENT_DIR", "data/attachments"),
		Logger:        logger,
	})
	if err != nil {
		logger.Fatalf("assistant: %v", err)
	}

	mux := http.NewServeMux()
	srv := &server{assistant: a, store: store, logger: logger}
	mux.HandleFunc("POST /ask", srv.handleAsk)
	mux.HandleFunc("POST /memory/add", srv.handleMemoryAdd)
	mux.HandleFunc("GET /memory/query", srv.handleMemoryQuery)
	mux.HandleFunc("GET /memory/list", srv.handleMemoryList)
	mux.HandleFunc("POST /memory/delete", srv.handleMemoryDelete)
	mux.HandleFunc("POST /debug-prompt", srv.handleDebugPrompt)

	if staticDir := envOr("MNEMOS_STATIC_DIR", "static"); dirExists(staticDir) {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	addr := envOr("MNEMOS_ADDR", ":8000")
	logger.Printf("listening on %s", addr)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpSrv.ListenAndServe(); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}

// newStore selects the memory backend from MNEMOS_STORE: "memory" (default),
// "postgres" with DATABASE_URL, or "mongo" with MONGODB_URI.
func newStore(ctx context.Context, embedder embed.Embedder) (memory.Store, error) {
	switch envOr("MNEMOS_STORE", "memory") {
	case "postgres":
		dim, _ := strconv.Atoi(envOr("MNEMOS_EMBED_DIM", "768"))
		store, err := memory.NewPostgresStore(ctx, os.Getenv("DATABASE_URL"), embedder, dim)
		if err != nil {
			return nil, err
		}
		if err := store.CreateSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "mongo":
		return memory.NewMongoStore(ctx, os.Getenv("MONGODB_URI"),
			envOr("MNEMOS_MONGO_DB", "mnemos"), envOr("MNEMOS_MONGO_COLLECTION", "memories"), embedder)
	default:
		return memory.NewInMemoryStore(embedder), nil
	}
}

func newModel(ctx context.Context) (models.Agent, error) {
	provider := envOr("MNEMOS_PROVIDER", "ollama")
	name := envOr("MNEMOS_MODEL", "llama3.1")
	return models.NewProvider(ctx, provider, name, "")
}

// newSearcher selects the web search backend from MNEMOS_SEARCH: "tavily"
// (default) or "ollama".
func newSearcher() search.Searcher {
	switch envOr("MNEMOS_SEARCH", "tavily") {
	case "ollama":
		return search.NewOllamaSearcher()
	default:
		return search.NewTavilyClient()
	}
}

type server struct {
	assistant *assistant.Assistant
	store     memory.Store
	logger    *log.Logger
}

type askRequest struct {
	Question    string   `json:"question"`
	UseMemory   *bool    `json:"use_memory"`
	UseSearch   *bool    `json:"use_search"`
	Personality string   `json:"personality"`
	FilePaths   []string `json:"file_paths"`
}

type askResponse struct {
	Answer      string             `json:"answer"`
	SearchInfo  search.Metadata    `json:"search_info"`
	SearchTexts []string           `json:"search_texts"`
	MemoryTexts []string           `json:"memory_texts"`
	Timings     map[string]float64 `json:"timings"`
}

func (s *server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.assistant.Answer(r.Context(), assistant.Request{
		Question:    req.Question,
		UseMemory:   boolOr(req.UseMemory, true),
		UseSearch:   boolOr(req.UseSearch, true),
		Personality: req.Personality,
		FilePaths:   req.FilePaths,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, askResponse{
		Answer:      resp.Answer,
		SearchInfo:  resp.SearchMetadata,
		SearchTexts: resp.SearchTexts,
		MemoryTexts: resp.MemoryTexts,
		Timings:     resp.Timings,
	})
}

type memoryAddRequest struct {
	Key      string            `json:"key"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func (s *server) handleMemoryAdd(w http.ResponseWriter, r *http.Request) {
	var req memoryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" || req.Text == "" {
		httpError(w, http.StatusBadRequest, "provide JSON body {\"key\": ..., \"text\": ...}")
		return
	}
	if err := s.store.Upsert(r.Context(), req.Key, req.Text, req.Metadata); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *server) handleMemoryQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		httpError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	k := 4
	if v := r.URL.Query().Get("n_results"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			k = n
		}
	}
	matches, err := s.store.Query(r.Context(), q, k)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, matches)
}

func (s *server) handleMemoryList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListAll(r.Context())
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, records)
}

func (s *server) handleMemoryDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		httpError(w, http.StatusBadRequest, "provide JSON body {\"key\": \"<id>\"}")
		return
	}
	if err := s.store.Delete(r.Context(), req.Key); err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type debugPromptRequest struct {
	Question    string `json:"question"`
	UseMemory   bool   `json:"use_memory"`
	UseSearch   bool   `json:"use_search"`
	Personality string `json:"personality"`
}

func (s *server) handleDebugPrompt(w http.ResponseWriter, r *http.Request) {
	var req debugPromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt, memoryTexts, searchTexts := s.assistant.BuildPrompt(r.Context(), assistant.Request{
		Question:    req.Question,
		UseMemory:   req.UseMemory,
		UseSearch:   req.UseSearch,
		Personality: req.Personality,
	})
	writeJSON(w, map[string]any{
		"prompt":       prompt,
		"memory_texts": memoryTexts,
		"search_texts": searchTexts,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func dirExists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && info.IsDir()
}
