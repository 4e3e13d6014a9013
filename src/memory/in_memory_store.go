package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mnemos-ai/mnemos/src/memory/embed"
)

// InMemoryStore implements Store for tests and lightweight deployments.
// Embeddings are computed on upsert and never leave the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	embedder embed.Embedder
	records  map[string]storedRecord
	order    []string
}

type storedRecord struct {
	text      string
	metadata  map[string]string
	embedding []float32
}

func NewInMemoryStore(embedder embed.Embedder) *InMemoryStore {
	if embedder == nil {
		embedder = embed.DummyEmbedder{}
	}
	return &InMemoryStore{
		embedder: embedder,
		records:  make(map[string]storedRecord),
	}
}

func (s *InMemoryStore) Upsert(ctx context.Context, id, text string, metadata map[string]string) error {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = storedRecord{
		text:      text,
		metadata:  cloneMetadata(metadata),
		embedding: embedding,
	}
	return nil
}

func (s *InMemoryStore) Query(ctx context.Context, text string, k int) ([]QueryMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	queryEmbedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]QueryMatch, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		matches = append(matches, QueryMatch{
			Record: Record{
				ID:       id,
				Text:     rec.text,
				Metadata: cloneMetadata(rec.metadata),
			},
			Distance: CosineDistance(queryEmbedding, rec.embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		out = append(out, Record{
			ID:       id,
			Text:     rec.text,
			Metadata: cloneMetadata(rec.metadata),
		})
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return nil
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneMetadata(meta map[string]string) map[string]string {
	if meta == nil {
		return map[string]string{}
	}
	cp := make(map[string]string, len(meta))
	for k, v := range meta {
		cp[k] = v
	}
	return cp
}

var _ Store = (*InMemoryStore)(nil)
