package retrieval

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	"github.com/mnemos-ai/mnemos/src/cache"
	"github.com/mnemos-ai/mnemos/src/memory"
)

// Options configure the hybrid retrieval merger.
type Options struct {
	// RecencyLimit is the size of the recency tier: the newest interaction
	// records, ordered by timestamp descending.
	RecencyLimit int
	// TotalLimit caps the merged output (recency tier + semantic tail).
	TotalLimit int
	// Overfetch is how many semantic candidates to request from the store,
	// to compensate for deduplication against the recency tier.
	Overfetch int
	// CacheSize bounds the per-question result cache; CacheTTL expires it.
	CacheSize int
	CacheTTL  time.Duration
}

func (o Options) withDefaults() Options {
	if o.RecencyLimit <= 0 {
		o.RecencyLimit = 5
	}
	if o.TotalLimit <= 0 {
		o.TotalLimit = 10
	}
	if o.Overfetch <= 0 {
		o.Overfetch = 20
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	return o
}

// Merger combines recency-biased and similarity-biased memory retrieval into
// one deduplicated snippet list. All failures degrade to partial or empty
// results; Retrieve never errors.
type Merger struct {
	store  memory.Store
	opts   Options
	cache  *cache.BoundedCache
	logger *log.Logger
}

func NewMerger(store memory.Store, opts Options) *Merger {
	opts = opts.withDefaults()
	return &Merger{
		store:  store,
		opts:   opts,
		cache:  cache.NewBoundedCache(opts.CacheSize, opts.CacheTTL),
		logger: log.New(os.Stderr, "retrieval: ", log.LstdFlags),
	}
}

// WithLogger overrides the default logger.
func (m *Merger) WithLogger(logger *log.Logger) *Merger {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Retrieve returns up to TotalLimit snippets for the question: the recency
// tier first (newest interactions), then semantic candidates in ascending
// distance order, with exact-text duplicates removed. Results are cached by
// question fingerprint until Invalidate is called or the entry expires.
func (m *Merger) Retrieve(ctx context.Context, question string) []string {
	if m.store == nil {
		return nil
	}

	key := cache.Fingerprint(question)
	if cached, ok := m.cache.Get(key); ok {
		if texts, ok := cached.([]string); ok {
			return texts
		}
	}

	recency := m.recencyTier(ctx)
	semantic := m.semanticTier(ctx, question)

	seen := make(map[string]struct{}, len(recency)+len(semantic))
	merged := make([]string, 0, m.opts.TotalLimit)
	for _, text := range recency {
		if len(merged) >= m.opts.TotalLimit {
			break
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		merged = append(merged, text)
	}
	for _, text := range semantic {
		if len(merged) >= m.opts.TotalLimit {
			break
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		merged = append(merged, text)
	}

	m.cache.Set(key, merged)
	return merged
}

// Invalidate drops the cached result for a question, forcing the next
// identical question to recompute retrieval.
func (m *Merger) Invalidate(question string) {
	m.cache.Invalidate(cache.Fingerprint(question))
}

// recencyTier returns the newest interaction texts, timestamp descending.
func (m *Merger) recencyTier(ctx context.Context) []string {
	records, err := m.store.ListAll(ctx)
	if err != nil {
		m.logger.Printf("recency tier degraded, list failed: %v", err)
		return nil
	}

	interactions := records[:0:0]
	for _, rec := range records {
		if rec.Metadata["type"] == memory.TypeInteraction {
			interactions = append(interactions, rec)
		}
	}
	// Timestamps are fixed-width YYYYMMDD_HHMMSS, so string order is
	// chronological order.
	sort.SliceStable(interactions, func(i, j int) bool {
		return interactions[i].Metadata["timestamp"] > interactions[j].Metadata["timestamp"]
	})
	if len(interactions) > m.opts.RecencyLimit {
		interactions = interactions[:m.opts.RecencyLimit]
	}

	texts := make([]string, 0, len(interactions))
	for _, rec := range interactions {
		if rec.Text != "" {
			texts = append(texts, rec.Text)
		}
	}
	return texts
}

// semanticTier returns over-fetched similarity candidates in ascending
// distance order. A query failure degrades to zero candidates.
func (m *Merger) semanticTier(ctx context.Context, question string) []string {
	matches, err := m.store.Query(ctx, question, m.opts.Overfetch)
	if err != nil {
		m.logger.Printf("semantic tier degraded, query failed: %v", err)
		return nil
	}
	// Stores return matches ranked already; keep the invariant explicit in
	// case a backend does not.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	texts := make([]string, 0, len(matches))
	for _, match := range matches {
		if match.Text != "" {
			texts = append(texts, match.Text)
		}
	}
	return texts
}
