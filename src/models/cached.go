package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/mnemos-ai/mnemos/src/cache"
)

// CachedLLM wraps an Agent and caches Generate calls.
type CachedLLM struct {
	Agent    Agent
	Cache    *cache.BoundedCache
	FilePath string
}

// NewCachedLLM creates a new CachedLLM wrapper. When filePath is non-empty
// the cache is loaded from and persisted to that file.
func NewCachedLLM(agent Agent, size int, ttl time.Duration, filePath string) *CachedLLM {
	c := &CachedLLM{
		Agent:    agent,
		Cache:    cache.NewBoundedCache(size, ttl),
		FilePath: filePath,
	}
	if filePath != "" {
		c.load()
	}
	return c
}

func (c *CachedLLM) load() {
	f, err := os.Open(c.FilePath)
	if err != nil {
		return // ignore errors (file not found, etc)
	}
	defer f.Close()

	var dump map[string]cache.Entry
	if err := json.NewDecoder(f).Decode(&dump); err == nil {
		c.Cache.Restore(dump)
	}
}

func (c *CachedLLM) save() {
	if c.FilePath == "" {
		return
	}
	dump := c.Cache.Dump()

	// Atomic write: write to temp, then rename.
	tmp := c.FilePath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	if err := json.NewEncoder(f).Encode(dump); err != nil {
		f.Close()
		os.Remove(tmp)
		return
	}
	f.Close()
	os.Rename(tmp, c.FilePath)
}

// Generate checks the cache before calling the underlying agent.
func (c *CachedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	key := cache.Fingerprint(prompt)
	if val, ok := c.Cache.Get(key); ok {
		if text, ok := val.(string); ok {
			return text, nil
		}
	}

	res, err := c.Agent.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	c.save()
	return res, nil
}

// GenerateWithFiles checks the cache (keyed on prompt plus file contents)
// before calling the underlying agent.
func (c *CachedLLM) GenerateWithFiles(ctx context.Context, prompt string, files []File) (string, error) {
	h := sha256.New()
	h.Write([]byte(prompt))
	for _, f := range files {
		h.Write([]byte(f.Name))
		h.Write([]byte(f.MIME))
		h.Write(f.Data)
	}
	key := hex.EncodeToString(h.Sum(nil))

	if val, ok := c.Cache.Get(key); ok {
		if text, ok := val.(string); ok {
			return text, nil
		}
	}

	res, err := c.Agent.GenerateWithFiles(ctx, prompt, files)
	if err != nil {
		return "", err
	}

	c.Cache.Set(key, res)
	c.save()
	return res, nil
}

// TryCreateCachedLLM checks env vars and wraps the agent if caching is enabled.
func TryCreateCachedLLM(agent Agent) Agent {
	sizeStr := os.Getenv("MNEMOS_LLM_CACHE_SIZE")
	if sizeStr == "" {
		return agent
	}

	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 {
		return agent
	}

	ttl := 300 * time.Second
	if ttlStr := os.Getenv("MNEMOS_LLM_CACHE_TTL"); ttlStr != "" {
		if sec, err := strconv.Atoi(ttlStr); err == nil && sec > 0 {
			ttl = time.Duration(sec) * time.Second
		}
	}

	path := os.Getenv("MNEMOS_LLM_CACHE_PATH")
	if path == "" {
		path = ".mnemos_llm_cache.json"
	}

	return NewCachedLLM(agent, size, ttl, path)
}

var _ Agent = (*CachedLLM)(nil)
